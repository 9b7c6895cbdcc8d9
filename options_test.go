package perpetual

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOptions(t *testing.T) {
	t.Run("returns empty options when no options provided", func(t *testing.T) {
		opts := ApplyOptions()
		require.NotNil(t, opts)
		assert.Empty(t, opts.Model)
		assert.Zero(t, opts.MaxTokens)
		assert.Nil(t, opts.Temperature)
		assert.Nil(t, opts.Tools)
		assert.Empty(t, opts.ForceTool)
		assert.Zero(t, opts.ReservedTokens)
	})

	t.Run("applies multiple options", func(t *testing.T) {
		tool := ToolDef{Name: "calculate", Parameters: json.RawMessage(`{"type":"object"}`)}
		opts := ApplyOptions(
			WithModel("gpt-4o"),
			WithMaxTokens(1000),
			WithTemperature(0.7),
			WithTools(tool),
			WithReservedTokens(512),
		)

		assert.Equal(t, "gpt-4o", opts.Model)
		assert.Equal(t, 1000, opts.MaxTokens)
		require.NotNil(t, opts.Temperature)
		assert.Equal(t, 0.7, *opts.Temperature)
		assert.Len(t, opts.Tools, 1)
		assert.Empty(t, opts.ForceTool)
		assert.Equal(t, 512, opts.ReservedTokens)
	})

	t.Run("forced tool replaces the tool list", func(t *testing.T) {
		opts := ApplyOptions(
			WithTools(ToolDef{Name: "a"}, ToolDef{Name: "b"}),
			WithForcedTool(ToolDef{Name: "calculate"}),
		)
		require.Len(t, opts.Tools, 1)
		assert.Equal(t, "calculate", opts.Tools[0].Name)
		assert.Equal(t, "calculate", opts.ForceTool)
	})
}

func TestApplyEmbeddingOptions(t *testing.T) {
	opts := ApplyEmbeddingOptions(WithEmbeddingModel("text-embedding-3-small"), WithEmbeddingDimensions(256))
	assert.Equal(t, "text-embedding-3-small", opts.Model)
	assert.Equal(t, 256, opts.Dimensions)
}
