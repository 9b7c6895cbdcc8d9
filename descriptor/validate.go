package descriptor

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
)

// ValidationError is a single argument that does not match the schema.
type ValidationError struct {
	Field   string // dotted path, e.g. "items[2]"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("argument %q: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every mismatch found in one argument set.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks decoded JSON arguments against a parameters schema
// produced by Describe. Required parameters must be present, unknown
// parameters are rejected, and each value must match its property schema.
func Validate(schema json.RawMessage, args map[string]any) error {
	var node schemaNode
	if err := json.Unmarshal(schema, &node); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	return validateNode(&node, args)
}

func validateNode(node *schemaNode, args map[string]any) error {
	var errs ValidationErrors
	for _, name := range node.Required {
		if _, ok := args[name]; !ok {
			errs = append(errs, &ValidationError{Field: name, Message: "required"})
		}
	}
	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop, ok := node.Properties[name]
		if !ok {
			errs = append(errs, &ValidationError{Field: name, Message: "unknown parameter"})
			continue
		}
		errs = checkValue(prop, name, args[name], errs)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkValue(s *schemaNode, path string, v any, errs ValidationErrors) ValidationErrors {
	fail := func(format string, args ...any) ValidationErrors {
		return append(errs, &ValidationError{Field: path, Message: fmt.Sprintf(format, args...)})
	}

	if len(s.AnyOf) > 0 {
		for _, alt := range s.AnyOf {
			if len(checkValue(alt, path, v, nil)) == 0 {
				return errs
			}
		}
		return fail("matches none of the allowed types")
	}

	if len(s.Enum) > 0 {
		found := false
		for _, e := range s.Enum {
			if sameValue(e, v) {
				found = true
				break
			}
		}
		if !found {
			return fail("must be one of %v", s.Enum)
		}
	}

	switch s.Type {
	case "":
		return errs
	case "null":
		if v != nil {
			return fail("must be null")
		}
	case "string":
		if _, ok := v.(string); !ok {
			return fail("must be a string, got %s", kindOf(v))
		}
	case "boolean":
		if _, ok := v.(bool); !ok {
			return fail("must be a boolean, got %s", kindOf(v))
		}
	case "integer":
		f, ok := number(v)
		if !ok || f != math.Trunc(f) {
			return fail("must be an integer, got %s", kindOf(v))
		}
	case "number":
		if _, ok := number(v); !ok {
			return fail("must be a number, got %s", kindOf(v))
		}
	case "array":
		items, ok := v.([]any)
		if !ok {
			return fail("must be an array, got %s", kindOf(v))
		}
		if s.MinItems != nil && len(items) < *s.MinItems {
			return fail("must have at least %d items", *s.MinItems)
		}
		if s.MaxItems != nil && len(items) > *s.MaxItems {
			return fail("must have at most %d items", *s.MaxItems)
		}
		for i, item := range items {
			itemSchema := s.Items
			if s.TupleItems != nil {
				if i >= len(s.TupleItems) {
					break
				}
				itemSchema = s.TupleItems[i]
			}
			if itemSchema != nil {
				errs = checkValue(itemSchema, fmt.Sprintf("%s[%d]", path, i), item, errs)
			}
		}
	case "object":
		obj, ok := v.(map[string]any)
		if !ok {
			return fail("must be an object, got %s", kindOf(v))
		}
		if s.AdditionalProperties != nil {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				errs = checkValue(s.AdditionalProperties, path+"."+k, obj[k], errs)
			}
		}
	}
	return errs
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func sameValue(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := number(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
