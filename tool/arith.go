package tool

import (
	"fmt"
	"math"

	starmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

var arithModule = &starlarkstruct.Module{
	Name: "arith",
	Members: starlark.StringDict{
		"eval": starlark.NewBuiltin("arith.eval", arithEval),
	},
}

// arithEnv holds the names an arithmetic expression may refer to: the math
// module plus abs, min and max.
var arithEnv = func() starlark.StringDict {
	env := make(starlark.StringDict, len(starmath.Module.Members)+3)
	for name, v := range starmath.Module.Members {
		env[name] = v
	}
	for _, name := range []string{"abs", "min", "max"} {
		env[name] = starlark.Universe[name]
	}
	return env
}()

var arithOps = map[syntax.Token]bool{
	syntax.PLUS:       true,
	syntax.MINUS:      true,
	syntax.STAR:       true,
	syntax.SLASH:      true,
	syntax.SLASHSLASH: true,
	syntax.PERCENT:    true,
}

// arithEval evaluates an arithmetic expression. Integer arithmetic stays
// exact; float results are rounded to precision digits.
func arithEval(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		expression string
		precision  = 6
	)
	if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "expression", &expression, "precision?", &precision); err != nil {
		return nil, err
	}
	expr, err := syntax.ParseExpr("expression", expression, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %v", expression, err)
	}
	if err := checkArith(expr); err != nil {
		return nil, fmt.Errorf("invalid expression %q: %v", expression, err)
	}

	v, err := starlark.EvalExprOptions(fileOptions, thread, expr, arithEnv)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case starlark.Int:
		return v, nil
	case starlark.Float:
		if precision < 0 {
			return v, nil
		}
		scale := math.Pow(10, float64(precision))
		return starlark.Float(math.Round(float64(v)*scale) / scale), nil
	}
	return nil, fmt.Errorf("expression %q is not numeric", expression)
}

func checkArith(e syntax.Expr) error {
	switch e := e.(type) {
	case *syntax.Literal:
		if e.Token == syntax.INT || e.Token == syntax.FLOAT {
			return nil
		}
		return fmt.Errorf("unexpected literal %s", e.Raw)
	case *syntax.Ident:
		if _, ok := arithEnv[e.Name]; ok {
			return nil
		}
		return fmt.Errorf("unknown name %s", e.Name)
	case *syntax.ParenExpr:
		return checkArith(e.X)
	case *syntax.UnaryExpr:
		if (e.Op == syntax.MINUS || e.Op == syntax.PLUS) && e.X != nil {
			return checkArith(e.X)
		}
		return fmt.Errorf("unsupported operator %s", e.Op)
	case *syntax.BinaryExpr:
		if !arithOps[e.Op] {
			return fmt.Errorf("unsupported operator %s", e.Op)
		}
		if err := checkArith(e.X); err != nil {
			return err
		}
		return checkArith(e.Y)
	case *syntax.CallExpr:
		if _, ok := e.Fn.(*syntax.Ident); !ok {
			return fmt.Errorf("only math functions may be called")
		}
		if err := checkArith(e.Fn); err != nil {
			return err
		}
		for _, a := range e.Args {
			if err := checkArith(a); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported syntax")
}
