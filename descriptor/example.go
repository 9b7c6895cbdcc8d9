package descriptor

import (
	"fmt"

	"go.starlark.net/syntax"
)

// exampleArgs resolves an example call such as `add(1, b=2)` against the
// signature. Positional arguments bind in order, keywords by name, and
// parameters not mentioned take their default.
func exampleArgs(call string, name string, params []Param) (map[string]any, error) {
	e, err := syntax.ParseExpr("example", call, 0)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q: %v", call, err)
	}
	ce, ok := e.(*syntax.CallExpr)
	if !ok {
		return nil, fmt.Errorf("%q is not a call", call)
	}
	if fn := baseName(ce.Fn); fn != name {
		return nil, fmt.Errorf("example calls %q, want %q", fn, name)
	}

	args := make(map[string]any, len(params))
	positional := 0
	sawKeyword := false
	for _, a := range ce.Args {
		if b, ok := a.(*syntax.BinaryExpr); ok && b.Op == syntax.EQ {
			sawKeyword = true
			id, ok := b.X.(*syntax.Ident)
			if !ok {
				return nil, fmt.Errorf("invalid keyword argument in %q", call)
			}
			if indexOf(params, id.Name) < 0 {
				return nil, fmt.Errorf("unexpected keyword argument %q", id.Name)
			}
			if _, dup := args[id.Name]; dup {
				return nil, fmt.Errorf("multiple values for argument %q", id.Name)
			}
			v, err := literalValue(b.Y)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", id.Name, err)
			}
			args[id.Name] = v
			continue
		}
		if u, ok := a.(*syntax.UnaryExpr); ok && (u.Op == syntax.STAR || u.Op == syntax.STARSTAR) {
			return nil, fmt.Errorf("unpacking is not allowed in examples")
		}
		if sawKeyword {
			return nil, fmt.Errorf("positional argument follows keyword argument")
		}
		if positional >= len(params) {
			return nil, fmt.Errorf("too many positional arguments")
		}
		v, err := literalValue(a)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", params[positional].Name, err)
		}
		args[params[positional].Name] = v
		positional++
	}

	for _, p := range params {
		if _, ok := args[p.Name]; ok {
			continue
		}
		if !p.HasDefault {
			return nil, fmt.Errorf("missing argument %q", p.Name)
		}
		args[p.Name] = p.Default
	}
	return args, nil
}

func indexOf(params []Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}
