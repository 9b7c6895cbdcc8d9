package tool

import (
	"context"
	"errors"
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/descriptor"
	"github.com/spetersoncode/perpetual/internal/starconv"
)

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Tool is a loaded tool: its source, the descriptor derived from it and
// the compiled function.
type Tool struct {
	Name       string
	Source     string
	Path       string // file the tool was loaded from, empty for in-memory tools
	Descriptor *descriptor.Descriptor

	fn   starlark.Callable
	host *Host
}

// Description returns the docstring description.
func (t *Tool) Description() string { return t.Descriptor.Description }

// Def returns the function declaration offered to the model.
func (t *Tool) Def() ai.ToolDef { return t.Descriptor.ToolDef() }

// Load describes and compiles a tool source. Top-level statements run once,
// with the host modules predeclared.
func Load(ctx context.Context, host *Host, source string) (*Tool, error) {
	d, err := descriptor.Describe(source)
	if err != nil {
		return nil, err
	}

	thread, stop := host.newThread(ctx, d.Name)
	defer stop()
	globals, err := starlark.ExecFileOptions(fileOptions, thread, d.Name+".py", d.ExecSource, host.predeclared())
	if err != nil {
		return nil, fmt.Errorf("load tool %s: %w", d.Name, evalError(err))
	}
	fn, ok := globals[d.Name].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("load tool %s: %s is not a function", d.Name, d.Name)
	}

	return &Tool{
		Name:       d.Name,
		Source:     source,
		Descriptor: d,
		fn:         fn,
		host:       host,
	}, nil
}

// Call runs the tool with JSON-shaped arguments. Omitted parameters take
// their defaults and numbers take the type their annotation declares. The result is converted back to plain Go values; values
// without a JSON form are returned as their string representation.
func (t *Tool) Call(ctx context.Context, args map[string]any) (any, error) {
	args = t.Descriptor.Coerce(t.Descriptor.WithDefaults(args))

	var kwargs []starlark.Tuple
	for _, p := range t.Descriptor.Params {
		v, ok := args[p.Name]
		if !ok {
			continue
		}
		sv, err := starconv.ToStarlark(v)
		if err != nil {
			return nil, &ErrToolExecution{Name: t.Name, Err: fmt.Errorf("argument %s: %w", p.Name, err)}
		}
		kwargs = append(kwargs, starlark.Tuple{starlark.String(p.Name), sv})
	}
	for name := range args {
		if _, ok := t.Descriptor.Param(name); !ok {
			return nil, &ErrToolExecution{Name: t.Name, Err: fmt.Errorf("unexpected argument %s", name)}
		}
	}

	thread, stop := t.host.newThread(ctx, t.Name)
	defer stop()
	out, err := starlark.Call(thread, t.fn, nil, kwargs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ErrToolExecution{Name: t.Name, Err: evalError(err)}
	}

	result, err := starconv.FromStarlark(out)
	if err != nil {
		return out.String(), nil
	}
	return result, nil
}

// evalError drops the Starlark backtrace, keeping the message the model and
// the operator need to see.
func evalError(err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return errors.New(evalErr.Msg)
	}
	return err
}
