// Package descriptor derives everything the agent needs to know about a tool
// from its source: the function name and signature, a description taken from
// the Google-style docstring, a JSON schema for the parameters and the
// arguments of the docstring example.
//
// Tool sources are Starlark with Python-style type annotations:
//
//	def add(a: int, b: int = 1) -> int:
//	    """Add two integers.
//
//	    Args:
//	        a (int): First operand.
//	        b (int): Second operand.
//
//	    Example:
//	        >>> add(2, b=3)
//	    """
//	    return a + b
//
// Describe is pure; it performs no I/O and never executes the tool.
package descriptor

import (
	"encoding/json"
	"fmt"

	"go.starlark.net/syntax"

	ai "github.com/spetersoncode/perpetual"
)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Param is one declared parameter of a tool.
type Param struct {
	Name        string
	Annotation  string
	Description string
	Default     any
	HasDefault  bool
}

// Descriptor is the reflected form of a tool source.
type Descriptor struct {
	Name        string
	Signature   string
	Description string
	Returns     string
	Params      []Param
	ExampleArgs map[string]any
	Required    []string
	Schema      json.RawMessage

	// Source is the text as written; ExecSource has the annotations removed
	// and is what the interpreter loads.
	Source     string
	ExecSource string

	schema *schemaNode
}

// ToolDef returns the function declaration offered to the model.
func (d *Descriptor) ToolDef() ai.ToolDef {
	return ai.ToolDef{
		Name:        d.Name,
		Description: d.Description,
		Parameters:  d.Schema,
	}
}

// Param returns the parameter with the given name.
func (d *Descriptor) Param(name string) (Param, bool) {
	if i := indexOf(d.Params, name); i >= 0 {
		return d.Params[i], true
	}
	return Param{}, false
}

// WithDefaults returns args with every omitted parameter that has a default
// filled in. The input map is not modified.
func (d *Descriptor) WithDefaults(args map[string]any) map[string]any {
	out := make(map[string]any, len(d.Params))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range d.Params {
		if _, ok := out[p.Name]; !ok && p.HasDefault {
			out[p.Name] = p.Default
		}
	}
	return out
}

// Validate checks args against the parameter schema.
func (d *Descriptor) Validate(args map[string]any) error {
	return validateNode(d.schema, args)
}

// Describe parses a tool source.
func Describe(source string) (*Descriptor, error) {
	h, err := parseHeader(source)
	if err != nil {
		return nil, err
	}

	doc, err := docstringOf(h)
	if err != nil {
		return nil, err
	}
	if doc.Short == "" {
		return nil, newError(KindMissingDocstring, "", "docstring of %s has no description", h.name)
	}

	params, err := describeParams(h, doc)
	if err != nil {
		return nil, err
	}

	if doc.Example == "" {
		return nil, newError(KindMissingExample, "", "docstring of %s has no >>> example", h.name)
	}
	example, err := exampleArgs(doc.Example, h.name, params)
	if err != nil {
		return nil, newError(KindInvalidExample, "", "%v", err)
	}

	node, required, err := parametersSchema(params)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return &Descriptor{
		Name:        h.name,
		Signature:   h.signature,
		Description: doc.Description(),
		Returns:     doc.Returns,
		Params:      params,
		ExampleArgs: example,
		Required:    required,
		Schema:      raw,
		Source:      source,
		ExecSource:  h.execSource,
		schema:      node,
	}, nil
}

// docstringOf compiles the annotation-free source and returns the docstring
// of its single function.
func docstringOf(h *header) (*Docstring, error) {
	f, err := fileOptions.Parse(h.name+".py", h.execSource, 0)
	if err != nil {
		return nil, newError(KindSyntax, "", "%v", err)
	}

	var def *syntax.DefStmt
	for _, stmt := range f.Stmts {
		if d, ok := stmt.(*syntax.DefStmt); ok {
			if def != nil {
				return nil, newError(KindMultipleFunctions, "", "source defines more than one top-level function")
			}
			def = d
		}
	}
	if def == nil || def.Name.Name != h.name {
		return nil, newError(KindNoFunction, "", "source defines no top-level function %s", h.name)
	}

	if len(def.Body) > 0 {
		if es, ok := def.Body[0].(*syntax.ExprStmt); ok {
			if lit, ok := es.X.(*syntax.Literal); ok && lit.Token == syntax.STRING {
				return ParseDocstring(lit.Value.(string)), nil
			}
		}
	}
	return nil, newError(KindMissingDocstring, "", "function %s has no docstring", h.name)
}

func describeParams(h *header, doc *Docstring) ([]Param, error) {
	docArgs := make(map[string]DocArg, len(doc.Args))
	for _, a := range doc.Args {
		docArgs[a.Name] = a
	}

	params := make([]Param, len(h.params))
	for i, raw := range h.params {
		if raw.annotation == "" {
			return nil, newError(KindMissingAnnotation, raw.name, "missing type annotation")
		}
		da, ok := docArgs[raw.name]
		if !ok || da.Description == "" {
			return nil, newError(KindMissingParamDoc, raw.name, "not described in the Args section")
		}
		p := Param{
			Name:        raw.name,
			Annotation:  raw.annotation,
			Description: da.Description,
			HasDefault:  raw.hasDefault,
		}
		if raw.hasDefault {
			v, err := parseLiteral(raw.def)
			if err != nil {
				return nil, newError(KindInvalidDefault, raw.name, "%v", err)
			}
			p.Default = v
		}
		params[i] = p
	}

	if len(doc.Args) != len(params) {
		return nil, newError(KindParamMismatch, "", "docstring describes %d parameters, signature declares %d", len(doc.Args), len(params))
	}
	for i, a := range doc.Args {
		if a.Name != params[i].Name {
			return nil, newError(KindParamMismatch, a.Name, "docstring order differs from signature; expected %q at position %d", params[i].Name, i+1)
		}
	}
	return params, nil
}

func parametersSchema(params []Param) (*schemaNode, []string, error) {
	node := &schemaNode{
		Type:       "object",
		Properties: make(map[string]*schemaNode, len(params)),
		Required:   []string{},
	}
	for _, p := range params {
		prop, err := typeSchema(p.Annotation)
		if err != nil {
			return nil, nil, newError(KindUnsupportedType, p.Name, "%v", err)
		}
		prop = prop.clone()
		prop.Description = p.Description
		if p.HasDefault {
			prop.Default = p.Default
		} else {
			node.Required = append(node.Required, p.Name)
		}
		node.Properties[p.Name] = prop
	}
	return node, append([]string(nil), node.Required...), nil
}
