package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/agent"
	"github.com/spetersoncode/perpetual/store"
)

func init() {
	color.NoColor = true
}

// arithmeticEmbedder separates texts mentioning arithmetic from the rest.
type arithmeticEmbedder struct{}

func (arithmeticEmbedder) EmbeddingModel() string { return "test" }

func (arithmeticEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "arithmetic") {
			out[i] = []float64{1, 0}
		} else {
			out[i] = []float64{0, 1}
		}
	}
	return out, nil
}

// calcChat plans one arithmetic step and then declares the request
// fulfilled. Calls are told apart by their options: the extractor forces a
// tool and the naturalizer declares one.
type calcChat struct {
	mu    sync.Mutex
	plans int
}

func (c *calcChat) Chat(_ context.Context, _ []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o := ai.ApplyOptions(opts...)
	switch {
	case o.ForceTool != "":
		return &ai.Response{
			FinishReason: ai.FinishToolCalls,
			FunctionCall: &ai.FunctionCall{ID: "call_1", Name: o.ForceTool, Arguments: `{"what": "2 + 3 * 4"}`},
		}, nil
	case len(o.Tools) > 0:
		return &ai.Response{Content: "The result is 14.", FinishReason: ai.FinishStop}, nil
	}
	c.plans++
	if c.plans == 1 {
		return &ai.Response{Content: "Calculate 2 + 3 * 4 with arithmetic.", FinishReason: ai.FinishStop}, nil
	}
	return &ai.Response{Content: agent.Fulfilled, FinishReason: ai.FinishStop}, nil
}

type testEnv struct {
	dataDir string
	envFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{"PERPETUAL_TOOL_DIR", "PERPETUAL_INDEX_PATH", "PERPETUAL_SESSION_DB", "PERPETUAL_LOG_FILE", "PERPETUAL_MAX_STEPS", "PERPETUAL_IMPROVE", "PERPETUAL_WORKSPACE"} {
		t.Setenv(k, "")
	}
	t.Setenv("PERPETUAL_DATA_DIR", dir)
	t.Setenv("PERPETUAL_LOG_LEVEL", "error")
	return &testEnv{dataDir: dir, envFile: filepath.Join(dir, "absent.env")}
}

func (e *testEnv) execute(t *testing.T, input string, chat agent.Chatter, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	a := newApp(strings.NewReader(input), out, &bytes.Buffer{})
	a.chat = chat
	a.embedder = arithmeticEmbedder{}
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{"--env-file", e.envFile}, args...))
	err := cmd.Execute()
	a.close()
	return out.String(), err
}

func TestRunApprovedStep(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "y\n", &calcChat{}, "run", "--no-improve", "What is 2 + 3 * 4?")
	require.NoError(t, err)

	assert.Contains(t, out, "[1] Calculate 2 + 3 * 4 with arithmetic.")
	assert.Contains(t, out, "using calculate")
	assert.Contains(t, out, `Run calculate({"what":"2 + 3 * 4"})? [y/N]`)
	assert.Contains(t, out, "The result is 14.")
	assert.Contains(t, out, "fulfilled after 1 step")

	out, err = env.execute(t, "", nil, "sessions", "-o", "json")
	require.NoError(t, err)
	var sessions []store.Session
	require.NoError(t, json.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "What is 2 + 3 * 4?", sessions[0].Request)
	assert.Equal(t, store.StatusFulfilled, sessions[0].Status)
	assert.Equal(t, "The result is 14.", sessions[0].Response)

	out, err = env.execute(t, "", nil, "sessions", "show", sessions[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "[1] Calculate 2 + 3 * 4 with arithmetic.")
	assert.Contains(t, out, "calculate(")
}

func TestRunRejectedStep(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "n\n", &calcChat{}, "run", "--no-improve", "--no-record", "What is 2 + 3 * 4?")
	require.NoError(t, err, "a rejected call is not fatal")
	assert.Contains(t, out, "rejected")
	assert.Contains(t, out, "Failed: rejected by operator")
}

func TestRunReadsRequestFromTerminal(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "What is 2 + 3 * 4?\ny\n", &calcChat{}, "run", "--no-improve", "--no-record")
	require.NoError(t, err)
	assert.Contains(t, out, "Request: ")
	assert.Contains(t, out, "The result is 14.")
}

func TestRunYesSkipsPrompt(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "", &calcChat{}, "run", "--yes", "--no-improve", "--no-record", "What is 2 + 3 * 4?")
	require.NoError(t, err)
	assert.NotContains(t, out, "[y/N]")
	assert.Contains(t, out, "The result is 14.")
}

func TestToolsCommands(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.execute(t, "", nil, "tools", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "calculate")
	assert.Contains(t, out, "finalize")
	assert.DirExists(t, filepath.Join(env.dataDir, "workspace"))

	out, err = env.execute(t, "", nil, "tools", "show", "calculate", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "name: calculate")
	assert.Contains(t, out, "def calculate(")

	_, err = env.execute(t, "", nil, "tools", "rm", "finalize")
	require.NoError(t, err)
	out, err = env.execute(t, "", nil, "tools", "list", "-o", "json")
	require.NoError(t, err)
	var catalog []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &catalog))
	require.Len(t, catalog, 1)
	assert.Equal(t, "calculate", catalog[0]["name"])

	_, err = env.execute(t, "", nil, "tools", "show", "finalize")
	assert.Error(t, err)
}

func TestUnknownOutputFormat(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.execute(t, "", nil, "tools", "list", "-o", "xml")
	assert.ErrorContains(t, err, "xml")
}

func TestPrinter(t *testing.T) {
	out := &strings.Builder{}
	p := &printer{w: out}
	p.handle(agent.Event{Type: agent.EventSessionStart, Text: "hash hello"})
	p.handle(agent.Event{Type: agent.EventRequestImproved, Text: "hash hello"})
	p.handle(agent.Event{Type: agent.EventStepPlanned, Step: 1, Text: "Hash hello."})
	p.handle(agent.Event{Type: agent.EventToolSynthesized, Step: 1, Tool: "sha256_of", Text: "def sha256_of(text: str) -> str:"})
	p.handle(agent.Event{Type: agent.EventToolInstalled, Step: 1, Tool: "sha256_of"})
	p.handle(agent.Event{Type: agent.EventStepComplete, Step: 1, Result: "The digest is 2cf2."})
	p.handle(agent.Event{Type: agent.EventAgentComplete, Step: 1, Text: "The digest is 2cf2."})

	got := out.String()
	assert.NotContains(t, got, "Directive", "an unchanged request is not repeated")
	assert.Contains(t, got, "[1] Hash hello.")
	assert.Contains(t, got, "wrote a new tool: sha256_of")
	assert.NotContains(t, got, "def sha256_of", "sources only in verbose mode")
	assert.Contains(t, got, "installed sha256_of")
	assert.Contains(t, got, "The digest is 2cf2.")
}

func TestRenderCall(t *testing.T) {
	render := renderCall(10)
	got := render(ai.FunctionCall{Name: "write_file", Arguments: `{"path":"notes.txt"}`})
	assert.Equal(t, `    Run write_file({"path"...)? [y/N] `, got)
}
