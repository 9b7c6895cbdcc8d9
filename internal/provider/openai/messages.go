package openai

import (
	"fmt"

	"github.com/openai/openai-go"
	ai "github.com/spetersoncode/perpetual"
)

// convertMessages maps the function-call conversation onto OpenAI tool calls.
// Function results are paired with the most recent call of the same name;
// a result whose call was truncated away is sent as plain user text.
func convertMessages(messages []ai.Message) []openai.ChatCompletionMessageParamUnion {
	var result []openai.ChatCompletionMessageParamUnion
	callIDs := map[string]string{}

	for i, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case ai.RoleAssistant:
			if msg.FunctionCall == nil {
				result = append(result, openai.AssistantMessage(msg.Content))
				continue
			}
			id := msg.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
			}
			callIDs[msg.FunctionCall.Name] = id
			assistant := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
					ID: id,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      msg.FunctionCall.Name,
						Arguments: msg.FunctionCall.Arguments,
					},
				}},
			}
			if msg.Content != "" {
				assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: openai.String(msg.Content),
				}
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case ai.RoleFunction:
			id, ok := callIDs[msg.Name]
			if !ok {
				result = append(result, openai.UserMessage(fmt.Sprintf("Result of %s: %s", msg.Name, msg.Content)))
				continue
			}
			delete(callIDs, msg.Name)
			result = append(result, openai.ToolMessage(msg.Content, id))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}
