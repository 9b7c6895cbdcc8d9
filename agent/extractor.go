package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	ai "github.com/spetersoncode/perpetual"
	"github.com/spetersoncode/perpetual/tool"
)

// Extractor turns a step into typed arguments for a tool by forcing the
// model to call it.
type Extractor struct {
	llm  Chatter
	opts []ai.Option
}

// NewExtractor creates an extractor. opts apply to every chat call.
func NewExtractor(llm Chatter, opts ...ai.Option) *Extractor {
	return &Extractor{llm: llm, opts: opts}
}

// Extract asks the model to call t for prompt, with history as context, and
// returns the arguments once they parse and satisfy the tool's schema.
// Numbers are returned as json.Number.
func (e *Extractor) Extract(ctx context.Context, history []ai.Message, t *tool.Tool, prompt string) (map[string]any, error) {
	messages := make([]ai.Message, 0, len(history)+2)
	messages = append(messages, ai.SystemMessage(extractorSystem))
	messages = append(messages, history...)
	messages = append(messages, ai.UserMessage(prompt))

	opts := append(append([]ai.Option{}, e.opts...), ai.WithForcedTool(t.Def()))
	resp, err := e.llm.Chat(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return parseCall(resp, t)
}

func parseCall(resp *ai.Response, t *tool.Tool) (map[string]any, error) {
	if !resp.FinishReason.Stopped() {
		return nil, &ExtractionError{Tool: t.Name, Reason: "generation ended with " + string(resp.FinishReason)}
	}
	call := resp.FunctionCall
	if call == nil {
		return nil, &ExtractionError{Tool: t.Name, Reason: "model did not call the function"}
	}
	if call.Name != t.Name {
		return nil, &ExtractionError{Tool: t.Name, Reason: "model called " + call.Name, Arguments: call.Arguments}
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return nil, &ExtractionError{Tool: t.Name, Reason: "arguments are not a JSON object", Arguments: call.Arguments, Err: err}
	}
	if err := t.Descriptor.Validate(args); err != nil {
		return nil, &ExtractionError{Tool: t.Name, Reason: "arguments do not match the schema", Arguments: call.Arguments, Err: err}
	}
	return args, nil
}

func decodeArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
