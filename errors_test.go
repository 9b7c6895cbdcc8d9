package perpetual

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrEmptyInput(t *testing.T) {
	t.Run("is a sentinel error", func(t *testing.T) {
		assert.Error(t, ErrEmptyInput)
		assert.Equal(t, "empty input", ErrEmptyInput.Error())
	})

	t.Run("can be compared with errors.Is", func(t *testing.T) {
		err := fmt.Errorf("%w: no texts", ErrEmptyInput)
		assert.True(t, errors.Is(err, ErrEmptyInput))
	})
}

func TestCategorizedErrors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name      string
		err       *Error
		transient bool
		permanent bool
		userInput bool
	}{
		{"transient", NewTransientError("rate limited", 429, cause), true, false, false},
		{"permanent", NewPermanentError("bad key", 401, cause), false, true, false},
		{"user input", NewUserInputError("bad request", 400, cause), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("chat: %w", tt.err)
			assert.Equal(t, tt.transient, IsTransient(wrapped))
			assert.Equal(t, tt.permanent, IsPermanent(wrapped))
			assert.Equal(t, tt.userInput, IsUserInput(wrapped))
			assert.Equal(t, tt.transient, tt.err.Retryable())
			assert.ErrorIs(t, wrapped, cause)
			assert.Equal(t, tt.err.Code, StatusCodeOf(wrapped))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "rate limited: boom", NewTransientError("rate limited", 429, errors.New("boom")).Error())
	assert.Equal(t, "rate limited", NewTransientError("rate limited", 429, nil).Error())
}

func TestRetryAfterOf(t *testing.T) {
	err := NewTransientErrorWithRetry("slow down", 429, 3*time.Second, nil)
	assert.Equal(t, 3*time.Second, RetryAfterOf(fmt.Errorf("wrapped: %w", err)))
	assert.Zero(t, RetryAfterOf(errors.New("plain")))
	assert.Zero(t, StatusCodeOf(errors.New("plain")))
	assert.False(t, IsTransient(errors.New("plain")))
}
