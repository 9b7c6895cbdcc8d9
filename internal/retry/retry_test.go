package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	ai "github.com/spetersoncode/perpetual"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

var errTransient = ai.NewTransientError("overloaded", 529, nil)

func TestDoSuccess(t *testing.T) {
	calls := 0
	result, err := do(context.Background(), DefaultConfig(), 1, nil, func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	result, err := do(context.Background(), fastConfig(5), 1, nil, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := ai.NewPermanentError("bad key", 401, nil)
	_, err := do(context.Background(), fastConfig(5), 1, nil, func() (int, error) {
		calls++
		return 0, permanent
	})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	var events []EventType
	_, err := do(context.Background(), fastConfig(5), 1, func(e Event) {
		events = append(events, e.Type)
	}, func() (int, error) {
		calls++
		return 0, errTransient
	})

	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 5, calls)
	assert.Equal(t, EventExhausted, events[len(events)-1])
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}

	calls := 0
	_, err := do(ctx, cfg, 1, nil, func() (int, error) {
		calls++
		cancel()
		return 0, errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestEffectiveDelayHonorsRetryAfter(t *testing.T) {
	withHint := ai.NewTransientErrorWithRetry("slow down", 429, 2*time.Second, nil)
	assert.Equal(t, 2*time.Second, effectiveDelay(time.Second, withHint))
	assert.Equal(t, 3*time.Second, effectiveDelay(3*time.Second, withHint))
	assert.Equal(t, time.Second, effectiveDelay(time.Second, errors.New("plain")))
}

func TestDoWithAck(t *testing.T) {
	t.Run("resumes after acknowledgement", func(t *testing.T) {
		calls, acks := 0, 0
		result, err := DoWithAck(context.Background(), fastConfig(5), func(ctx context.Context, err error) bool {
			acks++
			return true
		}, nil, func() (string, error) {
			calls++
			if calls <= 7 {
				return "", errTransient
			}
			return "done", nil
		})

		require.NoError(t, err)
		assert.Equal(t, "done", result)
		assert.Equal(t, 8, calls)
		assert.Equal(t, 1, acks)
	})

	t.Run("abandons when operator declines", func(t *testing.T) {
		calls := 0
		_, err := DoWithAck(context.Background(), fastConfig(5), func(ctx context.Context, err error) bool {
			return false
		}, nil, func() (string, error) {
			calls++
			return "", errTransient
		})

		assert.ErrorIs(t, err, ErrAbandoned)
		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 5, calls)
	})

	t.Run("nil acknowledger abandons", func(t *testing.T) {
		_, err := DoWithAck(context.Background(), fastConfig(2), nil, nil, func() (string, error) {
			return "", errTransient
		})
		var abandoned *AbandonedError
		require.ErrorAs(t, err, &abandoned)
		assert.Equal(t, 1, abandoned.Rounds)
	})

	t.Run("non-transient errors skip the operator", func(t *testing.T) {
		calls, acks := 0, 0
		invalid := ai.NewUserInputError("invalid schema for function", 400, nil)
		_, err := DoWithAck(context.Background(), fastConfig(5), func(ctx context.Context, err error) bool {
			acks++
			return true
		}, nil, func() (string, error) {
			calls++
			return "", invalid
		})

		assert.ErrorIs(t, err, invalid)
		assert.NotErrorIs(t, err, ErrAbandoned)
		assert.Equal(t, 1, calls)
		assert.Zero(t, acks)
	})

	t.Run("nil acknowledger passes permanent errors through", func(t *testing.T) {
		permanent := ai.NewPermanentError("bad key", 401, nil)
		_, err := DoWithAck(context.Background(), fastConfig(5), nil, nil, func() (string, error) {
			return "", permanent
		})

		var abandoned *AbandonedError
		assert.False(t, errors.As(err, &abandoned))
		assert.ErrorIs(t, err, permanent)
	})
}
