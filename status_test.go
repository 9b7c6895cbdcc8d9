package perpetual

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorizeStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorCategory
	}{
		{429, ErrorTransient},
		{408, ErrorTransient},
		{503, ErrorTransient},
		{529, ErrorTransient},
		{400, ErrorUserInput},
		{413, ErrorUserInput},
		{401, ErrorPermanent},
		{403, ErrorPermanent},
		{0, ErrorPermanent},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeStatus(tt.code), "status %d", tt.code)
	}
}

func TestRetryAfterHeader(t *testing.T) {
	assert.Zero(t, RetryAfterHeader(nil))
	assert.Zero(t, RetryAfterHeader(http.Header{"Retry-After": {"soon"}}))
	assert.Zero(t, RetryAfterHeader(http.Header{"Retry-After": {"-3"}}))
	assert.Equal(t, 7*time.Second, RetryAfterHeader(http.Header{"Retry-After": {"7"}}))

	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	d := RetryAfterHeader(http.Header{"Retry-After": {future}})
	assert.Greater(t, d, 58*time.Minute)

	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	assert.Zero(t, RetryAfterHeader(http.Header{"Retry-After": {past}}))
}

func TestNewStatusError(t *testing.T) {
	cause := errors.New("quota exceeded")

	err := NewStatusError("openai", 429, 2*time.Second, cause)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 429, StatusCodeOf(err))
	assert.Equal(t, 2*time.Second, RetryAfterOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "openai request failed: quota exceeded", err.Error())

	err = NewStatusError("anthropic", 401, 0, cause)
	assert.True(t, IsPermanent(err))

	err = NewStatusError("google", 403, time.Second, cause)
	require.True(t, IsTransient(err), "a retry hint makes any status transient")
}
