package agent

import (
	"sync"

	ai "github.com/spetersoncode/perpetual"
)

// Exchange is one step as the planner sees it.
type Exchange struct {
	Action string
	Result string
}

// History is the bounded conversation trace of a session: each step adds
// the step text as a user message and its result as an assistant message,
// and only the most recent limit steps are kept.
type History struct {
	mu       sync.RWMutex
	messages []ai.Message
	limit    int
}

// NewHistory creates a history keeping the last stepMemory steps.
// A non-positive stepMemory uses DefaultStepMemory.
func NewHistory(stepMemory int) *History {
	if stepMemory <= 0 {
		stepMemory = DefaultStepMemory
	}
	return &History{
		messages: make([]ai.Message, 0, 2*min(stepMemory, 16)),
		limit:    stepMemory,
	}
}

// Append adds a step and drops the oldest ones beyond the limit.
func (h *History) Append(action, result string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, ai.UserMessage(action), ai.AssistantMessage(result))
	if over := len(h.messages) - 2*h.limit; over > 0 {
		h.messages = append(h.messages[:0:0], h.messages[over:]...)
	}
}

// Messages returns a copy of all messages.
func (h *History) Messages() []ai.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]ai.Message, len(h.messages))
	copy(result, h.messages)
	return result
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Exchanges returns the kept steps, oldest first.
func (h *History) Exchanges() []Exchange {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Exchange, 0, len(h.messages)/2)
	for i := 0; i+1 < len(h.messages); i += 2 {
		out = append(out, Exchange{Action: h.messages[i].Content, Result: h.messages[i+1].Content})
	}
	return out
}
