package descriptor

import (
	"encoding/json"
	"fmt"
)

// schemaNode is the internal representation of a JSON Schema.
type schemaNode struct {
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	Default     any    `json:"default,omitempty"`

	// Array constraints. A tuple carries one schema per position in
	// TupleItems and is written as an "items" array.
	Items      *schemaNode   `json:"-"`
	TupleItems []*schemaNode `json:"-"`
	MinItems   *int          `json:"minItems,omitempty"`
	MaxItems   *int          `json:"maxItems,omitempty"`

	// Object constraints
	Properties           map[string]*schemaNode `json:"-"`
	Required             []string               `json:"-"`
	AdditionalProperties *schemaNode            `json:"additionalProperties,omitempty"`

	AnyOf []*schemaNode `json:"anyOf,omitempty"`
}

// MarshalJSON writes items as a schema or a positional array. Properties
// and required are written whenever they are non-nil, so a tool without
// parameters still declares an empty object.
func (s *schemaNode) MarshalJSON() ([]byte, error) {
	type plain schemaNode
	out := struct {
		*plain
		Items      any                     `json:"items,omitempty"`
		Properties *map[string]*schemaNode `json:"properties,omitempty"`
		Required   *[]string               `json:"required,omitempty"`
	}{plain: (*plain)(s)}
	switch {
	case s.TupleItems != nil:
		out.Items = s.TupleItems
	case s.Items != nil:
		out.Items = s.Items
	}
	if s.Properties != nil {
		out.Properties = &s.Properties
	}
	if s.Required != nil {
		out.Required = &s.Required
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts items as either a schema or an array of schemas.
func (s *schemaNode) UnmarshalJSON(data []byte) error {
	type plain schemaNode
	var in struct {
		*plain
		Items      json.RawMessage        `json:"items"`
		Properties map[string]*schemaNode `json:"properties"`
		Required   []string               `json:"required"`
	}
	in.plain = (*plain)(s)
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Properties = in.Properties
	s.Required = in.Required
	if len(in.Items) == 0 || string(in.Items) == "null" {
		return nil
	}
	if in.Items[0] == '[' {
		return json.Unmarshal(in.Items, &s.TupleItems)
	}
	s.Items = &schemaNode{}
	return json.Unmarshal(in.Items, s.Items)
}

func (s *schemaNode) clone() *schemaNode {
	c := *s
	return &c
}

func (s *schemaNode) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("<invalid schema: %v>", err)
	}
	return string(data)
}

// ptr returns a pointer to the value.
func ptr[T any](v T) *T {
	return &v
}
