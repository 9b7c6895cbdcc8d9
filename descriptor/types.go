package descriptor

import (
	"fmt"
	"strings"

	"go.starlark.net/syntax"
)

// typeSchema maps a Python type annotation to a JSON schema.
func typeSchema(annotation string) (*schemaNode, error) {
	src := strings.ReplaceAll(annotation, "...", "Ellipsis")
	expr, err := syntax.ParseExpr("annotation", src, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot parse annotation %q", annotation)
	}
	return exprSchema(expr)
}

func exprSchema(e syntax.Expr) (*schemaNode, error) {
	switch e := e.(type) {
	case *syntax.ParenExpr:
		return exprSchema(e.X)

	case *syntax.Literal:
		// Forward reference written as a string.
		if s, ok := e.Value.(string); ok && e.Token == syntax.STRING {
			return typeSchema(s)
		}

	case *syntax.Ident:
		return namedSchema(e.Name)

	case *syntax.DotExpr:
		// typing.List, t.Optional and friends.
		return namedSchema(e.Name.Name)

	case *syntax.BinaryExpr:
		if e.Op == syntax.PIPE {
			return unionSchema([]syntax.Expr{e.X, e.Y})
		}

	case *syntax.IndexExpr:
		return genericSchema(baseName(e.X), typeArgs(e.Y))
	}
	return nil, fmt.Errorf("unsupported type %s", exprString(e))
}

func namedSchema(name string) (*schemaNode, error) {
	switch name {
	case "str":
		return &schemaNode{Type: "string"}, nil
	case "int":
		return &schemaNode{Type: "integer"}, nil
	case "float":
		return &schemaNode{Type: "number"}, nil
	case "bool":
		return &schemaNode{Type: "boolean"}, nil
	case "None", "NoneType":
		return &schemaNode{Type: "null"}, nil
	case "Any", "object":
		return &schemaNode{}, nil
	case "list", "List", "Sequence", "Iterable", "set", "Set", "frozenset", "FrozenSet", "tuple", "Tuple":
		return &schemaNode{Type: "array", Items: &schemaNode{}}, nil
	case "dict", "Dict", "Mapping":
		return &schemaNode{Type: "object"}, nil
	}
	return nil, fmt.Errorf("unsupported type %s", name)
}

func genericSchema(base string, args []syntax.Expr) (*schemaNode, error) {
	switch base {
	case "list", "List", "Sequence", "Iterable", "set", "Set", "frozenset", "FrozenSet":
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes one type argument", base)
		}
		items, err := exprSchema(args[0])
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "array", Items: items}, nil

	case "tuple", "Tuple":
		if len(args) == 2 && isEllipsis(args[1]) {
			items, err := exprSchema(args[0])
			if err != nil {
				return nil, err
			}
			return &schemaNode{Type: "array", Items: items}, nil
		}
		positional := make([]*schemaNode, len(args))
		for i, a := range args {
			item, err := exprSchema(a)
			if err != nil {
				return nil, err
			}
			positional[i] = item
		}
		return &schemaNode{
			Type:       "array",
			TupleItems: positional,
			MinItems:   ptr(len(args)),
			MaxItems:   ptr(len(args)),
		}, nil

	case "dict", "Dict", "Mapping":
		if len(args) != 2 {
			return nil, fmt.Errorf("%s takes two type arguments", base)
		}
		key, err := exprSchema(args[0])
		if err != nil {
			return nil, err
		}
		if key.Type != "string" {
			return nil, fmt.Errorf("dict keys must be str, got %s", exprString(args[0]))
		}
		value, err := exprSchema(args[1])
		if err != nil {
			return nil, err
		}
		return &schemaNode{Type: "object", AdditionalProperties: value}, nil

	case "Optional":
		if len(args) != 1 {
			return nil, fmt.Errorf("Optional takes one type argument")
		}
		return unionSchema([]syntax.Expr{args[0], &syntax.Ident{Name: "None"}})

	case "Union":
		return unionSchema(args)

	case "Literal":
		var values []any
		for _, a := range args {
			v, err := literalValue(a)
			if err != nil {
				return nil, fmt.Errorf("Literal arguments must be constants: %w", err)
			}
			values = append(values, v)
		}
		return &schemaNode{Type: enumType(values), Enum: values}, nil
	}
	return nil, fmt.Errorf("unsupported generic type %s", base)
}

// unionSchema flattens nested unions and collapses a single member.
func unionSchema(members []syntax.Expr) (*schemaNode, error) {
	var flat []syntax.Expr
	var collect func(e syntax.Expr)
	collect = func(e syntax.Expr) {
		if b, ok := e.(*syntax.BinaryExpr); ok && b.Op == syntax.PIPE {
			collect(b.X)
			collect(b.Y)
			return
		}
		if ix, ok := e.(*syntax.IndexExpr); ok && baseName(ix.X) == "Union" {
			for _, a := range typeArgs(ix.Y) {
				collect(a)
			}
			return
		}
		flat = append(flat, e)
	}
	for _, m := range members {
		collect(m)
	}

	var anyOf []*schemaNode
	seen := make(map[string]bool)
	for _, m := range flat {
		s, err := exprSchema(m)
		if err != nil {
			return nil, err
		}
		key := s.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		anyOf = append(anyOf, s)
	}
	if len(anyOf) == 1 {
		return anyOf[0], nil
	}
	return &schemaNode{AnyOf: anyOf}, nil
}

// enumType returns the JSON type shared by all values, or "" when mixed.
func enumType(values []any) string {
	t := ""
	for _, v := range values {
		var vt string
		switch v.(type) {
		case string:
			vt = "string"
		case int64:
			vt = "integer"
		case float64:
			vt = "number"
		case bool:
			vt = "boolean"
		default:
			return ""
		}
		if t != "" && t != vt {
			return ""
		}
		t = vt
	}
	return t
}

func typeArgs(e syntax.Expr) []syntax.Expr {
	if t, ok := e.(*syntax.TupleExpr); ok {
		return t.List
	}
	return []syntax.Expr{e}
}

func baseName(e syntax.Expr) string {
	switch e := e.(type) {
	case *syntax.Ident:
		return e.Name
	case *syntax.DotExpr:
		return e.Name.Name
	}
	return ""
}

func isEllipsis(e syntax.Expr) bool {
	id, ok := e.(*syntax.Ident)
	return ok && id.Name == "Ellipsis"
}

func exprString(e syntax.Expr) string {
	if s, ok := spanSource(e); ok {
		return s
	}
	return fmt.Sprintf("%T", e)
}

func spanSource(e syntax.Expr) (string, bool) {
	switch e := e.(type) {
	case *syntax.Ident:
		return e.Name, true
	case *syntax.DotExpr:
		if x, ok := spanSource(e.X); ok {
			return x + "." + e.Name.Name, true
		}
	case *syntax.Literal:
		return e.Raw, true
	case *syntax.IndexExpr:
		x, ok := spanSource(e.X)
		if !ok {
			return "", false
		}
		var parts []string
		for _, a := range typeArgs(e.Y) {
			s, ok := spanSource(a)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return x + "[" + strings.Join(parts, ", ") + "]", true
	}
	return "", false
}
