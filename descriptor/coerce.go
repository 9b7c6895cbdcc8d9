package descriptor

import (
	"encoding/json"
	"math"
)

// maxExactInt is the largest magnitude a float64 holds without losing
// integer precision.
const maxExactInt = 1 << 53

// Coerce returns a copy of args with every number converted to the type its
// parameter declares: int64 for integer properties and float64 for number
// properties, including numbers nested in lists, tuples and dicts. Values
// the schema does not constrain are left as they are. Call it on arguments
// that passed Validate.
func (d *Descriptor) Coerce(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for name, v := range args {
		if d.schema == nil {
			out[name] = v
			continue
		}
		if prop, ok := d.schema.Properties[name]; ok {
			v = coerceValue(prop, v)
		}
		out[name] = v
	}
	return out
}

func coerceValue(s *schemaNode, v any) any {
	if len(s.AnyOf) > 0 {
		for _, alt := range s.AnyOf {
			if len(checkValue(alt, "", v, nil)) == 0 {
				return coerceValue(alt, v)
			}
		}
		return v
	}

	switch s.Type {
	case "integer":
		return toInteger(v)
	case "number":
		if f, ok := number(v); ok {
			return f
		}
	case "array":
		items, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, item := range items {
			itemSchema := s.Items
			if s.TupleItems != nil {
				itemSchema = nil
				if i < len(s.TupleItems) {
					itemSchema = s.TupleItems[i]
				}
			}
			if itemSchema != nil {
				item = coerceValue(itemSchema, item)
			}
			out[i] = item
		}
		return out
	case "object":
		obj, ok := v.(map[string]any)
		if !ok || s.AdditionalProperties == nil {
			return v
		}
		out := make(map[string]any, len(obj))
		for k, item := range obj {
			out[k] = coerceValue(s.AdditionalProperties, item)
		}
		return out
	}
	return v
}

// toInteger turns a whole number into an int64. Integers too large for an
// int64 stay json.Number so they can still become big Starlark ints.
func toInteger(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	f, ok := number(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) >= maxExactInt {
		return v
	}
	return int64(f)
}
