package anthropic

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	ai "github.com/spetersoncode/perpetual"
)

func convertMessages(messages []ai.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var result []anthropic.MessageParam
	var system []anthropic.TextBlockParam
	callIDs := map[string]string{}

	for i, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			// Anthropic rejects empty text blocks
			if msg.Content != "" {
				system = append(system, anthropic.TextBlockParam{Text: msg.Content})
			}
		case ai.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			if fc := msg.FunctionCall; fc != nil {
				id := fc.ID
				if id == "" {
					id = fmt.Sprintf("toolu_%d", i)
				}
				callIDs[fc.Name] = id
				var input any = map[string]any{}
				if fc.Arguments != "" {
					_ = json.Unmarshal([]byte(fc.Arguments), &input)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(id, input, fc.Name))
			}
			if len(blocks) > 0 {
				result = append(result, anthropic.NewAssistantMessage(blocks...))
			}
		case ai.RoleFunction:
			id, ok := callIDs[msg.Name]
			if !ok {
				result = append(result, anthropic.NewUserMessage(
					anthropic.NewTextBlock(fmt.Sprintf("Result of %s: %s", msg.Name, msg.Content))))
				continue
			}
			delete(callIDs, msg.Name)
			result = append(result, anthropic.NewUserMessage(anthropic.NewToolResultBlock(id, msg.Content, false)))
		default:
			if msg.Content != "" {
				result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}
		}
	}

	return result, system
}
