package perpetual

import "github.com/google/uuid"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	// RoleFunction carries the result of a function call back to the model.
	// Name must be set to the function that produced it.
	RoleFunction Role = "function"
)

// Message is a single entry in a conversation. It mirrors the structured chat
// format of function-calling providers: an assistant message may carry a
// FunctionCall instead of (or in addition to) Content, and a function message
// carries the raw result of that call.
type Message struct {
	// ID is an optional unique identifier for the message.
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// Name is the function name for RoleFunction messages. It is counted
	// towards the token budget like any other field.
	Name string `json:"name,omitempty"`
	// FunctionCall is set on assistant messages that invoke a function.
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// GenerateMessageID creates a unique message identifier.
func GenerateMessageID() string {
	return "msg-" + uuid.New().String()
}

// UserMessage returns a user message with the given content.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant message with the given content.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SystemMessage returns a system message with the given content.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// FunctionCallMessage returns an assistant message that invokes name with the
// given JSON arguments.
func FunctionCallMessage(name, arguments string) Message {
	return Message{
		Role:         RoleAssistant,
		FunctionCall: &FunctionCall{Name: name, Arguments: arguments},
	}
}

// FunctionResultMessage returns a function message carrying the raw result of
// calling name.
func FunctionResultMessage(name, result string) Message {
	return Message{Role: RoleFunction, Name: name, Content: result}
}

// FinishReason is the normalized reason a provider stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishOther         FinishReason = "other"
)

// Stopped reports whether generation ended naturally, either with text or
// with a complete function call.
func (f FinishReason) Stopped() bool {
	return f == FinishStop || f == FinishToolCalls
}

// Response represents a complete response from a chat provider.
type Response struct {
	Content      string       `json:"content,omitempty"`
	FinishReason FinishReason `json:"finishReason,omitempty"`
	Usage        Usage        `json:"usage"`
	// FunctionCall is set when the model chose to call a function.
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// Usage contains token usage information for a request.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}
