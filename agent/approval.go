package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	ai "github.com/spetersoncode/perpetual"
)

// DefaultArgumentsWidth is how much of a call's arguments a prompt shows.
const DefaultArgumentsWidth = 200

// AutoApprove approves every call.
func AutoApprove() ApproverFunc {
	return func(context.Context, ai.FunctionCall) (bool, string) {
		return true, ""
	}
}

// TruncateArguments shortens s to at most width runes, marking the cut.
func TruncateArguments(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}

// Terminal asks an operator to confirm tool calls on a line-oriented
// terminal. Lines are read in the background so a pending prompt still
// honors context cancellation.
//
// Usage:
//
//	term := agent.NewTerminal(os.Stdin, os.Stdout)
//	loop := agent.New(client, registry, agent.WithApprover(term.Approver()))
type Terminal struct {
	out    io.Writer
	width  int
	render func(ai.FunctionCall) string

	in    *bufio.Reader
	once  sync.Once
	lines chan string
	mu    sync.Mutex
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithArgumentsWidth sets how much of the arguments a prompt shows.
func WithArgumentsWidth(n int) TerminalOption {
	return func(t *Terminal) {
		t.width = n
	}
}

// WithRender replaces the prompt text for a call.
func WithRender(fn func(ai.FunctionCall) string) TerminalOption {
	return func(t *Terminal) {
		t.render = fn
	}
}

// NewTerminal creates a Terminal reading answers from in and writing
// prompts to out.
func NewTerminal(in io.Reader, out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		out:   out,
		width: DefaultArgumentsWidth,
		in:    bufio.NewReader(in),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.render == nil {
		t.render = func(call ai.FunctionCall) string {
			return fmt.Sprintf("Run %s(%s)? [y/N] ", call.Name, TruncateArguments(call.Arguments, t.width))
		}
	}
	return t
}

// Approver returns the approval function. Only an answer of "y" approves.
func (t *Terminal) Approver() ApproverFunc {
	return func(ctx context.Context, call ai.FunctionCall) (bool, string) {
		answer, err := t.Ask(ctx, t.render(call))
		if err != nil {
			return false, err.Error()
		}
		if strings.EqualFold(answer, "y") {
			return true, ""
		}
		return false, ""
	}
}

// Ask writes prompt and returns the next line, trimmed. It returns
// io.EOF once the input is exhausted.
func (t *Terminal) Ask(ctx context.Context, prompt string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.once.Do(t.start)
	fmt.Fprint(t.out, prompt)
	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return strings.TrimSpace(line), nil
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return "", ctx.Err()
	}
}

// Acknowledge asks whether to keep retrying a model call that failed every
// attempt. Anything but "n" resumes. It matches llm.Acknowledger.
func (t *Terminal) Acknowledge(ctx context.Context, err error) bool {
	answer, askErr := t.Ask(ctx, fmt.Sprintf("Model call failed: %v\nRetry? [Y/n] ", err))
	if askErr != nil {
		return false
	}
	return !strings.EqualFold(answer, "n")
}

func (t *Terminal) start() {
	t.lines = make(chan string)
	go func() {
		defer close(t.lines)
		for {
			line, err := t.in.ReadString('\n')
			if line != "" || err == nil {
				t.lines <- line
			}
			if err != nil {
				return
			}
		}
	}()
}
