package descriptor

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/spetersoncode/perpetual/internal/starconv"
)

var constantNames = map[string]bool{"None": true, "True": true, "False": true}

// literalValue evaluates a constant expression: numbers, strings, None,
// booleans, and lists, tuples or dicts of constants.
func literalValue(e syntax.Expr) (any, error) {
	if err := checkConstant(e); err != nil {
		return nil, err
	}
	thread := &starlark.Thread{Name: "literal"}
	v, err := starlark.EvalExprOptions(fileOptions, thread, e, nil)
	if err != nil {
		return nil, err
	}
	return starconv.FromStarlark(v)
}

func checkConstant(e syntax.Expr) error {
	switch e := e.(type) {
	case *syntax.Literal:
		return nil
	case *syntax.Ident:
		if constantNames[e.Name] {
			return nil
		}
		return fmt.Errorf("%s is not a constant", e.Name)
	case *syntax.ParenExpr:
		return checkConstant(e.X)
	case *syntax.UnaryExpr:
		if (e.Op == syntax.MINUS || e.Op == syntax.PLUS) && e.X != nil {
			return checkConstant(e.X)
		}
	case *syntax.ListExpr:
		return checkAll(e.List)
	case *syntax.TupleExpr:
		return checkAll(e.List)
	case *syntax.DictExpr:
		for _, entry := range e.List {
			de := entry.(*syntax.DictEntry)
			if err := checkConstant(de.Key); err != nil {
				return err
			}
			if err := checkConstant(de.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%s is not a constant expression", exprString(e))
}

func checkAll(list []syntax.Expr) error {
	for _, x := range list {
		if err := checkConstant(x); err != nil {
			return err
		}
	}
	return nil
}

// parseLiteral parses and evaluates a constant written as source text.
func parseLiteral(src string) (any, error) {
	e, err := syntax.ParseExpr("literal", src, 0)
	if err != nil {
		return nil, err
	}
	return literalValue(e)
}
