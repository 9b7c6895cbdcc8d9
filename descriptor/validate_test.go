package descriptor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedSource = `def plot(points: list[tuple[float, float]], title: str, style: Literal["line", "bar"] = "line", labels: Optional[dict[str, str]] = None) -> str:
    """Render a chart.

    Args:
        points (list[tuple[float, float]]): Coordinates.
        title (str): Chart title.
        style (str): Chart style.
        labels (dict[str, str]): Axis labels.

    Example:
        >>> plot([(0, 1), (1, 2)], "t")
    """
    return title
`

func TestValidate(t *testing.T) {
	d, err := Describe(mixedSource)
	require.NoError(t, err)
	assert.Equal(t, []string{"points", "title"}, d.Required)
	assert.Equal(t, []any{[]any{int64(0), int64(1)}, []any{int64(1), int64(2)}}, d.ExampleArgs["points"])

	decode := func(s string) map[string]any {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(s), &m))
		return m
	}

	tests := []struct {
		name   string
		args   string
		fields []string
	}{
		{"valid", `{"points": [[0, 1.5]], "title": "t"}`, nil},
		{"valid with optionals", `{"points": [], "title": "t", "style": "bar", "labels": {"x": "time"}}`, nil},
		{"null optional", `{"points": [], "title": "t", "labels": null}`, nil},
		{"missing required", `{"points": []}`, []string{"title"}},
		{"unknown", `{"points": [], "title": "t", "color": "red"}`, []string{"color"}},
		{"wrong type", `{"points": "x", "title": 3}`, []string{"points", "title"}},
		{"tuple length", `{"points": [[1, 2, 3]], "title": "t"}`, []string{"points[0]"}},
		{"enum", `{"points": [], "title": "t", "style": "pie"}`, []string{"style"}},
		{"anyOf", `{"points": [], "title": "t", "labels": {"x": 1}}`, []string{"labels"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := decode(tt.args)
			err := Validate(d.Schema, args)
			assert.Equal(t, err == nil, d.Validate(args) == nil)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			var fields []string
			for _, e := range verrs {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.fields, fields)
		})
	}
}

func TestValidateIntegers(t *testing.T) {
	d, err := Describe(calculateSource)
	require.NoError(t, err)

	assert.NoError(t, d.Validate(map[string]any{"expression": "1", "precision": float64(2)}))
	assert.NoError(t, d.Validate(map[string]any{"expression": "1", "precision": json.Number("2")}))
	assert.Error(t, d.Validate(map[string]any{"expression": "1", "precision": 2.5}))
}

func TestCoerce(t *testing.T) {
	d, err := Describe(mixedSource)
	require.NoError(t, err)

	got := d.Coerce(map[string]any{
		"points": []any{[]any{json.Number("1"), int64(2)}},
		"title":  "t",
		"labels": nil,
	})
	assert.Equal(t, []any{[]any{float64(1), float64(2)}}, got["points"])
	assert.Equal(t, "t", got["title"])
	assert.Nil(t, got["labels"])

	d, err = Describe(calculateSource)
	require.NoError(t, err)
	got = d.Coerce(map[string]any{"expression": "1", "precision": json.Number("3.0")})
	assert.Equal(t, int64(3), got["precision"])
	got = d.Coerce(map[string]any{"precision": 4.0})
	assert.Equal(t, int64(4), got["precision"])
	got = d.Coerce(map[string]any{"precision": json.Number("123456789012345678901234")})
	assert.Equal(t, json.Number("123456789012345678901234"), got["precision"])
}
