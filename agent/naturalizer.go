package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/tool"
)

// Naturalizer turns a tool call and its raw result into prose for the
// history.
type Naturalizer struct {
	llm  Chatter
	opts []ai.Option
}

// NewNaturalizer creates a naturalizer. opts apply to every chat call.
func NewNaturalizer(llm Chatter, opts ...ai.Option) *Naturalizer {
	return &Naturalizer{llm: llm, opts: opts}
}

// Naturalize summarizes calling t with arguments for step. callErr is the
// tool's failure, if any, and is reported in place of raw.
func (n *Naturalizer) Naturalize(ctx context.Context, step string, t *tool.Tool, arguments string, raw any, callErr error) (string, error) {
	messages := []ai.Message{
		ai.SystemMessage(naturalizerSystem),
		ai.UserMessage(step),
		ai.FunctionCallMessage(t.Name, arguments),
		ai.FunctionResultMessage(t.Name, resultJSON(raw, callErr)),
	}
	// Some providers reject function messages unless the function is declared.
	opts := append(append([]ai.Option{}, n.opts...), ai.WithTools(t.Def()))
	resp, err := n.llm.Chat(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return plainResult(t.Name, raw, callErr), nil
	}
	return text, nil
}

// resultJSON is the function message content: the result under "result",
// or the failure under "error", with "ok" telling them apart.
func resultJSON(raw any, callErr error) string {
	payload := map[string]any{"ok": callErr == nil}
	if callErr != nil {
		payload["error"] = callErr.Error()
	} else {
		payload["result"] = raw
	}
	b, err := json.Marshal(payload)
	if err != nil {
		b, _ = json.Marshal(map[string]any{"ok": callErr == nil, "result": fmt.Sprint(raw)})
	}
	return string(b)
}

// plainResult describes a result without the model.
func plainResult(name string, raw any, callErr error) string {
	if callErr != nil {
		return fmt.Sprintf("Calling %s failed: %v", name, callErr)
	}
	return fmt.Sprintf("%s returned %s", name, displayValue(raw))
}

func displayValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "nothing"
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
