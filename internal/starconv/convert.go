// Package starconv converts between Starlark values and the plain Go values
// produced by encoding/json.
package starconv

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// ToStarlark converts a JSON-shaped Go value into a Starlark value.
// json.Number becomes an int when it is an integer literal and a float
// otherwise. float64 always becomes a float.
func ToStarlark(v any) (starlark.Value, error) {
	switch v := v.(type) {
	case nil:
		return starlark.None, nil
	case bool:
		return starlark.Bool(v), nil
	case string:
		return starlark.String(v), nil
	case []byte:
		return starlark.Bytes(v), nil
	case int:
		return starlark.MakeInt(v), nil
	case int64:
		return starlark.MakeInt64(v), nil
	case float64:
		return starlark.Float(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return starlark.MakeInt64(i), nil
		}
		if b, ok := new(big.Int).SetString(string(v), 10); ok {
			return starlark.MakeBigInt(b), nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v)
		}
		return starlark.Float(f), nil
	case []any:
		elems := make([]starlark.Value, len(v))
		for i, e := range v {
			sv, err := ToStarlark(e)
			if err != nil {
				return nil, err
			}
			elems[i] = sv
		}
		return starlark.NewList(elems), nil
	case map[string]any:
		d := starlark.NewDict(len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sv, err := ToStarlark(v[k])
			if err != nil {
				return nil, err
			}
			if err := d.SetKey(starlark.String(k), sv); err != nil {
				return nil, err
			}
		}
		return d, nil
	case starlark.Value:
		return v, nil
	}
	return nil, fmt.Errorf("cannot convert %T to a starlark value", v)
}

// FromStarlark converts a Starlark value into a JSON-shaped Go value.
// Tuples and sets become slices, structs become maps, and dict keys are
// stringified.
func FromStarlark(v starlark.Value) (any, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.String:
		return string(v), nil
	case starlark.Bytes:
		return string(v), nil
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return i, nil
		}
		return json.Number(v.String()), nil
	case starlark.Float:
		return float64(v), nil
	case *starlark.List:
		return iterableToSlice(v, v.Len())
	case starlark.Tuple:
		return iterableToSlice(v, v.Len())
	case *starlark.Set:
		return iterableToSlice(v, v.Len())
	case *starlark.Dict:
		out := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			key, ok := starlark.AsString(item[0])
			if !ok {
				key = item[0].String()
			}
			val, err := FromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	case *starlarkstruct.Struct:
		names := v.AttrNames()
		out := make(map[string]any, len(names))
		for _, name := range names {
			attr, err := v.Attr(name)
			if err != nil {
				return nil, err
			}
			val, err := FromStarlark(attr)
			if err != nil {
				return nil, err
			}
			out[name] = val
		}
		return out, nil
	}
	return nil, fmt.Errorf("cannot convert starlark %s to a plain value", v.Type())
}

func iterableToSlice(it starlark.Iterable, n int) ([]any, error) {
	out := make([]any, 0, n)
	iter := it.Iterate()
	defer iter.Done()
	var x starlark.Value
	for iter.Next(&x) {
		val, err := FromStarlark(x)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}
