package retry

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	ai "github.com/spetersoncode/perpetual"
	"github.com/stretchr/testify/assert"
)

type mockAPIError struct {
	code int
}

func (e *mockAPIError) Error() string    { return fmt.Sprintf("api error %d", e.code) }
func (e *mockAPIError) StatusCode() int { return e.code }

type mockNetError struct {
	timeout bool
}

func (e *mockNetError) Error() string   { return "net failure" }
func (e *mockNetError) Timeout() bool   { return e.timeout }
func (e *mockNetError) Temporary() bool { return false }

var _ net.Error = (*mockNetError)(nil)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"rate limited", &mockAPIError{code: 429}, true},
		{"server error", &mockAPIError{code: 503}, true},
		{"unauthorized", &mockAPIError{code: 401}, false},
		{"bad request", &mockAPIError{code: 400}, false},
		{"net timeout", &mockNetError{timeout: true}, true},
		{"net non-timeout", &mockNetError{}, false},
		{"connection reset errno", fmt.Errorf("dial: %w", syscall.ECONNRESET), true},
		{"message pattern", errors.New("upstream said: Too Many Requests"), true},
		{"google pattern", errors.New("googleapi: Error 503: backend"), true},
		{"plain", errors.New("invalid json"), false},
		{"categorized transient", ai.NewTransientError("slow", 0, nil), true},
		{"categorized permanent overrides status", ai.NewPermanentError("no", 429, &mockAPIError{code: 429}), false},
		{"wrapped", fmt.Errorf("chat: %w", &mockAPIError{code: 502}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsTransient(tt.err))
		})
	}
}

func TestAbandonedError(t *testing.T) {
	cause := &mockAPIError{code: 503}
	err := fmt.Errorf("chat: %w", &AbandonedError{Rounds: 2, Err: cause})

	assert.ErrorIs(t, err, ErrAbandoned)
	var api *mockAPIError
	assert.True(t, errors.As(err, &api))
	assert.Contains(t, err.Error(), "abandoned by operator after 2 round(s)")
}
