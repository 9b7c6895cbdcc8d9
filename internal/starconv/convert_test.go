package starconv

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

func TestToStarlark(t *testing.T) {
	v, err := ToStarlark(map[string]any{
		"n":     json.Number("7"),
		"x":     json.Number("1.5"),
		"whole": 3.0,
		"tags":  []any{"a", true, nil},
	})
	require.NoError(t, err)

	d, ok := v.(*starlark.Dict)
	require.True(t, ok)
	n, _, _ := d.Get(starlark.String("n"))
	assert.Equal(t, starlark.MakeInt(7), n)
	x, _, _ := d.Get(starlark.String("x"))
	assert.Equal(t, starlark.Float(1.5), x)
	whole, _, _ := d.Get(starlark.String("whole"))
	assert.Equal(t, starlark.Float(3), whole)
	tags, _, _ := d.Get(starlark.String("tags"))
	assert.Equal(t, `["a", True, None]`, tags.String())

	_, err = ToStarlark(struct{}{})
	assert.Error(t, err)
}

func TestFromStarlark(t *testing.T) {
	d := starlark.NewDict(2)
	require.NoError(t, d.SetKey(starlark.String("pair"), starlark.Tuple{starlark.MakeInt(1), starlark.String("b")}))
	require.NoError(t, d.SetKey(starlark.MakeInt(2), starlark.Float(0.5)))

	out, err := FromStarlark(d)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"pair": []any{int64(1), "b"},
		"2":    0.5,
	}, out)

	_, err = FromStarlark(starlark.NewBuiltin("f", nil))
	assert.Error(t, err)
}

func TestFromStarlarkStruct(t *testing.T) {
	s := starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"status": starlark.MakeInt(200),
		"body":   starlark.String("ok"),
	})
	out, err := FromStarlark(s)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": int64(200), "body": "ok"}, out)
}
