package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	ai "github.com/spetersoncode/perpetual"
	"github.com/tiktoken-go/tokenizer"
)

// Accounting constants of the OpenAI chat format. Other providers are
// budgeted with the same rules.
const (
	tokensPerMessage = 3
	tokensPerName    = 1
	replyPriming     = 3
	toolsOverhead    = 9
)

// Tokenizer counts and slices text in model tokens.
type Tokenizer interface {
	Count(text string) int
	// Tail returns the longest suffix of text that encodes to at most n tokens.
	Tail(text string, n int) string
}

type bpeTokenizer struct {
	codec tokenizer.Codec
}

// NewTokenizer returns a BPE tokenizer matching the model's encoding:
// o200k_base for the GPT-4o generation and later, cl100k_base otherwise.
func NewTokenizer(model string) (Tokenizer, error) {
	encoding := tokenizer.Cl100kBase
	for _, prefix := range []string{"gpt-4o", "gpt-4.1", "gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(model, prefix) {
			encoding = tokenizer.O200kBase
			break
		}
	}
	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("load %s tokenizer: %w", encoding, err)
	}
	return &bpeTokenizer{codec: codec}, nil
}

func (t *bpeTokenizer) Count(text string) int {
	if text == "" {
		return 0
	}
	n, err := t.codec.Count(text)
	if err != nil {
		// Rough estimate keeps budgeting conservative rather than failing the call.
		return utf8.RuneCountInString(text)/3 + 1
	}
	return n
}

func (t *bpeTokenizer) Tail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		runes := []rune(text)
		if len(runes) <= n*3 {
			return text
		}
		return string(runes[len(runes)-n*3:])
	}
	if len(ids) <= n {
		return text
	}
	tail, err := t.codec.Decode(ids[len(ids)-n:])
	if err != nil {
		return ""
	}
	// A token boundary may split a multi-byte rune.
	return strings.TrimLeft(strings.ToValidUTF8(tail, "�"), "�")
}

// CountMessage returns the tokens one message occupies in a request.
func CountMessage(tok Tokenizer, m ai.Message) int {
	n := tokensPerMessage + tok.Count(string(m.Role)) + tok.Count(m.Content)
	if m.Name != "" {
		n += tok.Count(m.Name) + tokensPerName
	}
	if fc := m.FunctionCall; fc != nil {
		n += tok.Count(fc.Name) + tok.Count(fc.Arguments)
	}
	return n
}

// CountMessages returns the tokens of a whole conversation including the
// priming of the reply.
func CountMessages(tok Tokenizer, messages []ai.Message) int {
	n := replyPriming
	for _, m := range messages {
		n += CountMessage(tok, m)
	}
	return n
}

// CountTools returns the tokens the function definitions add to a request.
func CountTools(tok Tokenizer, tools []ai.ToolDef) int {
	if len(tools) == 0 {
		return 0
	}
	return toolsOverhead + tok.Count(RenderToolDeclarations(tools))
}

// RenderToolDeclarations renders function definitions in the TypeScript-like
// namespace form providers inject into the prompt. It is used for counting.
func RenderToolDeclarations(tools []ai.ToolDef) string {
	var b strings.Builder
	b.WriteString("namespace functions {\n\n")
	for _, t := range tools {
		if t.Description != "" {
			fmt.Fprintf(&b, "// %s\n", t.Description)
		}
		var schema map[string]any
		_ = json.Unmarshal(t.Parameters, &schema)
		props, _ := schema["properties"].(map[string]any)
		if len(props) == 0 {
			fmt.Fprintf(&b, "type %s = () => any;\n\n", t.Name)
			continue
		}
		required := map[string]bool{}
		if req, ok := schema["required"].([]any); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					required[s] = true
				}
			}
		}
		fmt.Fprintf(&b, "type %s = (_: {\n", t.Name)
		for _, name := range sortedKeys(props) {
			prop, _ := props[name].(map[string]any)
			if desc, ok := prop["description"].(string); ok && desc != "" {
				fmt.Fprintf(&b, "// %s\n", desc)
			}
			optional := "?"
			if required[name] {
				optional = ""
			}
			fmt.Fprintf(&b, "%s%s: %s,\n", name, optional, renderType(prop))
		}
		b.WriteString("}) => any;\n\n")
	}
	b.WriteString("} // namespace functions")
	return b.String()
}

func renderType(schema map[string]any) string {
	if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 {
		parts := make([]string, len(enum))
		for i, v := range enum {
			raw, _ := json.Marshal(v)
			parts[i] = string(raw)
		}
		return strings.Join(parts, " | ")
	}
	if anyOf, ok := schema["anyOf"].([]any); ok {
		parts := make([]string, 0, len(anyOf))
		for _, alt := range anyOf {
			if m, ok := alt.(map[string]any); ok {
				parts = append(parts, renderType(m))
			}
		}
		return strings.Join(parts, " | ")
	}
	switch schema["type"] {
	case "string":
		return "string"
	case "integer", "number":
		return "number"
	case "boolean":
		return "boolean"
	case "null":
		return "null"
	case "array":
		switch items := schema["items"].(type) {
		case map[string]any:
			return renderType(items) + "[]"
		case []any:
			parts := make([]string, 0, len(items))
			for _, it := range items {
				if m, ok := it.(map[string]any); ok {
					parts = append(parts, renderType(m))
				}
			}
			return "[" + strings.Join(parts, ", ") + "]"
		}
		return "any[]"
	case "object":
		if props, ok := schema["properties"].(map[string]any); ok && len(props) > 0 {
			parts := make([]string, 0, len(props))
			for _, name := range sortedKeys(props) {
				prop, _ := props[name].(map[string]any)
				parts = append(parts, name+": "+renderType(prop))
			}
			return "{ " + strings.Join(parts, ", ") + " }"
		}
		if extra, ok := schema["additionalProperties"].(map[string]any); ok {
			return "Record<string, " + renderType(extra) + ">"
		}
		return "object"
	}
	return "any"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
