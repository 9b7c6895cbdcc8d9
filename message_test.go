package perpetual

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMessageID(t *testing.T) {
	id := GenerateMessageID()
	assert.True(t, strings.HasPrefix(id, "msg-"))
	assert.NotEqual(t, id, GenerateMessageID())
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, UserMessage("hi"))
	assert.Equal(t, Message{Role: RoleAssistant, Content: "ok"}, AssistantMessage("ok"))
	assert.Equal(t, Message{Role: RoleSystem, Content: "be brief"}, SystemMessage("be brief"))

	call := FunctionCallMessage("calculate", `{"what":"1+1"}`)
	assert.Equal(t, RoleAssistant, call.Role)
	require.NotNil(t, call.FunctionCall)
	assert.Equal(t, "calculate", call.FunctionCall.Name)
	assert.Equal(t, `{"what":"1+1"}`, call.FunctionCall.Arguments)

	result := FunctionResultMessage("calculate", "2")
	assert.Equal(t, RoleFunction, result.Role)
	assert.Equal(t, "calculate", result.Name)
	assert.Equal(t, "2", result.Content)
}

func TestFinishReasonStopped(t *testing.T) {
	assert.True(t, FinishStop.Stopped())
	assert.True(t, FinishToolCalls.Stopped())
	assert.False(t, FinishLength.Stopped())
	assert.False(t, FinishContentFilter.Stopped())
	assert.False(t, FinishReason("").Stopped())
}
