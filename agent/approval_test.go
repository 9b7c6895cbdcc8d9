package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ai "github.com/spetersoncode/perpetual"
)

func TestTerminalApprover(t *testing.T) {
	ctx := context.Background()
	out := &strings.Builder{}
	term := NewTerminal(strings.NewReader("y\nyes\n\nY\n"), out, WithArgumentsWidth(12))
	approve := term.Approver()
	call := ai.FunctionCall{Name: "write_file", Arguments: `{"path":"notes.txt","content":"hello"}`}

	ok, reason := approve(ctx, call)
	assert.True(t, ok)
	assert.Empty(t, reason)
	assert.Equal(t, `Run write_file({"path":"...)? [y/N] `, out.String())

	ok, _ = approve(ctx, call)
	assert.False(t, ok, "only y approves")

	ok, _ = approve(ctx, call)
	assert.False(t, ok, "an empty line rejects")

	ok, _ = approve(ctx, call)
	assert.True(t, ok)

	ok, reason = approve(ctx, call)
	assert.False(t, ok)
	assert.Equal(t, io.EOF.Error(), reason)
}

func TestTerminalRender(t *testing.T) {
	out := &strings.Builder{}
	term := NewTerminal(strings.NewReader("y\n"), out, WithRender(func(call ai.FunctionCall) string {
		return "confirm " + call.Name + ": "
	}))
	ok, _ := term.Approver()(context.Background(), ai.FunctionCall{Name: "calculate"})
	assert.True(t, ok)
	assert.Equal(t, "confirm calculate: ", out.String())
}

func TestTerminalHonorsCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	term := NewTerminal(pr, io.Discard)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := term.Ask(ctx, "> ")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ok, reason := term.Approver()(ctx, ai.FunctionCall{Name: "calculate"})
	assert.False(t, ok)
	assert.Equal(t, context.DeadlineExceeded.Error(), reason)
}

func TestTerminalAcknowledge(t *testing.T) {
	ctx := context.Background()
	out := &strings.Builder{}
	term := NewTerminal(strings.NewReader("\nn\n"), out)
	failure := errors.New("rate limited")

	assert.True(t, term.Acknowledge(ctx, failure))
	assert.Contains(t, out.String(), "Model call failed: rate limited")
	assert.False(t, term.Acknowledge(ctx, failure))
	assert.False(t, term.Acknowledge(ctx, failure), "exhausted input abandons")
}

func TestTruncateArguments(t *testing.T) {
	assert.Equal(t, "short", TruncateArguments("short", 10))
	assert.Equal(t, "abcdefg...", TruncateArguments("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", TruncateArguments("abcdef", 2))
	assert.Equal(t, "héllo wö...", TruncateArguments("héllo wörld, again", 11))
	assert.Equal(t, "anything", TruncateArguments("anything", 0))
}

func TestAutoApprove(t *testing.T) {
	ok, reason := AutoApprove()(context.Background(), ai.FunctionCall{Name: "finalize"})
	assert.True(t, ok)
	assert.Empty(t, reason)
}
