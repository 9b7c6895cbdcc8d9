package anthropic

import (
	"testing"

	ai "github.com/spetersoncode/perpetual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertMessages(t *testing.T) {
	msgs, system := convertMessages([]ai.Message{
		ai.SystemMessage("be terse"),
		ai.UserMessage("hash hello"),
		ai.FunctionCallMessage("sha256_of", `{"text":"hello"}`),
		ai.FunctionResultMessage("sha256_of", `"2cf24d"`),
	})

	require.Len(t, system, 1)
	assert.Equal(t, "be terse", system[0].Text)
	require.Len(t, msgs, 3)

	toolUse := msgs[1].Content[0].OfToolUse
	require.NotNil(t, toolUse)
	assert.Equal(t, "sha256_of", toolUse.Name)

	toolResult := msgs[2].Content[0].OfToolResult
	require.NotNil(t, toolResult)
	assert.Equal(t, toolUse.ID, toolResult.ToolUseID)
}

func TestConvertStopReason(t *testing.T) {
	assert.Equal(t, ai.FinishStop, convertStopReason("end_turn"))
	assert.Equal(t, ai.FinishToolCalls, convertStopReason("tool_use"))
	assert.Equal(t, ai.FinishLength, convertStopReason("max_tokens"))
	assert.Equal(t, ai.FinishContentFilter, convertStopReason("refusal"))
	assert.Equal(t, ai.FinishOther, convertStopReason("pause_turn"))
}

func TestConvertToolsCopiesRequired(t *testing.T) {
	tools := convertTools([]ai.ToolDef{{
		Name:       "calculate",
		Parameters: []byte(`{"type":"object","properties":{"what":{"type":"string"}},"required":["what"]}`),
	}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, []string{"what"}, tools[0].OfTool.InputSchema.Required)
}
