package google

import (
	"encoding/json"
	"fmt"
	"strings"

	ai "github.com/spetersoncode/perpetual"
	"google.golang.org/genai"
)

// convertMessages returns the conversation contents and the combined system
// instruction. Function results reference their call by name, which is how
// Gemini pairs them.
func convertMessages(messages []ai.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var system []string

	for _, msg := range messages {
		var role string
		var parts []*genai.Part

		switch msg.Role {
		case ai.RoleSystem:
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
			continue
		case ai.RoleAssistant:
			role = genai.RoleModel
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			if fc := msg.FunctionCall; fc != nil {
				args := map[string]any{}
				if fc.Arguments != "" {
					_ = json.Unmarshal([]byte(fc.Arguments), &args)
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: fc.Name, Args: args},
				})
			}
		case ai.RoleFunction:
			role = genai.RoleUser
			var response map[string]any
			if err := json.Unmarshal([]byte(msg.Content), &response); err != nil {
				response = map[string]any{"result": msg.Content}
			}
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{Name: msg.Name, Response: response},
			})
		default:
			role = genai.RoleUser
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
		}

		if len(parts) > 0 {
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
		}
	}

	if len(system) == 0 {
		return contents, nil
	}
	return contents, &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
}

func extractFunctionCall(parts []*genai.Part) *ai.FunctionCall {
	for i, part := range parts {
		if part.FunctionCall == nil {
			continue
		}
		args, _ := json.Marshal(part.FunctionCall.Args)
		id := part.FunctionCall.ID
		if id == "" {
			id = fmt.Sprintf("call_%d_%s", i, part.FunctionCall.Name)
		}
		return &ai.FunctionCall{ID: id, Name: part.FunctionCall.Name, Arguments: string(args)}
	}
	return nil
}

// BlockedError indicates the request was blocked by content filtering.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("request blocked: %s", e.Reason)
}
