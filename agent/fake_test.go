package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/tool"
)

// keywordEmbedder puts every text on the axes of the keywords it contains,
// so tools and steps sharing a keyword have similarity 1 and others 0.
type keywordEmbedder struct{}

var keywords = []string{"arithmetic", "sha-256", "final", "delete", "square"}

func (keywordEmbedder) EmbeddingModel() string { return "keywords" }

func (keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, len(keywords)+1)
		lower := strings.ToLower(text)
		hit := false
		for k, w := range keywords {
			if strings.Contains(lower, w) {
				vec[k] = 1
				hit = true
			}
		}
		if !hit {
			vec[len(keywords)] = 1
		}
		out[i] = vec
	}
	return out, nil
}

func openTools(t *testing.T) *tool.Registry {
	t.Helper()
	reg, err := tool.Open(context.Background(), filepath.Join(t.TempDir(), "tools"), keywordEmbedder{})
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg
}

type chatCall struct {
	role     string
	messages []ai.Message
	options  *ai.Options
}

// scriptedChat answers each component from its own queue. Planner replies
// past the end of the queue declare the request fulfilled.
type scriptedChat struct {
	mu        sync.Mutex
	plans     []string
	arguments []string
	code      []string
	summaries []string
	improved  string
	err       map[string]error
	calls     []chatCall
}

func (c *scriptedChat) Chat(_ context.Context, messages []ai.Message, opts ...ai.Option) (*ai.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	role := roleOf(messages)
	options := ai.ApplyOptions(opts...)
	c.calls = append(c.calls, chatCall{role: role, messages: messages, options: options})
	if err := c.err[role]; err != nil {
		return nil, err
	}

	switch role {
	case "improver":
		if c.improved != "" {
			return &ai.Response{Content: c.improved, FinishReason: ai.FinishStop}, nil
		}
		return &ai.Response{Content: messages[len(messages)-1].Content, FinishReason: ai.FinishStop}, nil
	case "planner":
		if len(c.plans) == 0 {
			return &ai.Response{Content: Fulfilled, FinishReason: ai.FinishStop}, nil
		}
		plan := c.plans[0]
		c.plans = c.plans[1:]
		return &ai.Response{Content: plan, FinishReason: ai.FinishStop}, nil
	case "extractor":
		if len(c.arguments) == 0 {
			return nil, fmt.Errorf("unexpected extraction for %s", options.ForceTool)
		}
		args := c.arguments[0]
		c.arguments = c.arguments[1:]
		return &ai.Response{
			FinishReason: ai.FinishToolCalls,
			FunctionCall: &ai.FunctionCall{ID: "call_1", Name: options.ForceTool, Arguments: args},
		}, nil
	case "synthesizer":
		if len(c.code) == 0 {
			return nil, fmt.Errorf("unexpected synthesis")
		}
		code := c.code[0]
		c.code = c.code[1:]
		return &ai.Response{Content: code, FinishReason: ai.FinishStop}, nil
	case "naturalizer":
		if len(c.summaries) > 0 {
			s := c.summaries[0]
			c.summaries = c.summaries[1:]
			return &ai.Response{Content: s, FinishReason: ai.FinishStop}, nil
		}
		return &ai.Response{Content: "The call returned " + messages[len(messages)-1].Content + ".", FinishReason: ai.FinishStop}, nil
	}
	return nil, fmt.Errorf("unrecognized prompt: %q", messages[0].Content)
}

func (c *scriptedChat) callsOf(role string) []chatCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []chatCall
	for _, call := range c.calls {
		if call.role == role {
			out = append(out, call)
		}
	}
	return out
}

func roleOf(messages []ai.Message) string {
	if len(messages) == 0 {
		return ""
	}
	system := messages[0].Content
	switch {
	case system == plannerSystem:
		return "planner"
	case system == extractorSystem:
		return "extractor"
	case system == naturalizerSystem:
		return "naturalizer"
	case system == improverSystem:
		return "improver"
	case strings.HasPrefix(system, "You write tools"):
		return "synthesizer"
	}
	return ""
}

// lastUser returns the content of the last user message of a call.
func (c chatCall) lastUser() string {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == ai.RoleUser {
			return c.messages[i].Content
		}
	}
	return ""
}

const sha256Tool = `def sha256_of(text: str) -> str:
    """Return the SHA-256 hex digest of a string.

    Args:
        text (str): Text to hash.

    Returns:
        str: The lowercase hex digest.

    Example:
        >>> sha256_of("hello")
    """
    return hashlib.sha256(text)
`

const deleteTool = `def delete_files(path: str) -> str:
    """Delete every file below a directory.

    Args:
        path (str): Directory to clear.

    Example:
        >>> delete_files("/tmp/scratch")
    """
    return "deleted " + path
`

const squareTool = `def square(n: int) -> int:
    """Return the square of an integer.

    Args:
        n (int): The integer to square.

    Example:
        >>> square(3)
    """
    return n * n
`
