package retry

import (
	"context"
	"time"

	ai "github.com/spetersoncode/perpetual"
)

// Acknowledger is consulted when a round of attempts fails. Returning true
// starts a fresh round; returning false abandons the call.
type Acknowledger func(ctx context.Context, err error) bool

// effectiveDelay returns the delay to use, honoring server's Retry-After if larger.
func effectiveDelay(configuredDelay time.Duration, err error) time.Duration {
	return max(configuredDelay, ai.RetryAfterOf(err))
}

// do runs one round of at most cfg.MaxAttempts attempts. It returns early
// on a non-transient error or when ctx is done during a backoff wait.
func do[T any](ctx context.Context, cfg Config, round int, obs Observer, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := max(cfg.MaxAttempts, 1)
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		retryable := IsTransient(err)

		obs.emit(Event{
			Type:        EventAttemptFailed,
			Attempt:     attempt + 1,
			MaxAttempts: attempts,
			Round:       round,
			Error:       err,
			Retryable:   retryable,
		})

		if !retryable {
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < attempts-1 {
			delay := effectiveDelay(cfg.Delay(attempt), err)
			obs.emit(Event{
				Type:        EventRetrying,
				Attempt:     attempt + 1,
				MaxAttempts: attempts,
				Round:       round,
				Delay:       delay,
			})

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	obs.emit(Event{
		Type:        EventExhausted,
		Attempt:     attempts,
		MaxAttempts: attempts,
		Round:       round,
		Error:       lastErr,
	})

	return zero, lastErr
}

// DoWithAck runs rounds of attempts until fn succeeds. Only a round that
// ends in a transient failure reaches the acknowledger, which decides
// whether to start another; a nil acknowledger abandons on the first such
// round. Non-transient errors and context cancellation are returned as is.
// Abandonment yields an *AbandonedError.
func DoWithAck[T any](ctx context.Context, cfg Config, ack Acknowledger, obs Observer, fn func() (T, error)) (T, error) {
	var zero T
	for round := 1; ; round++ {
		result, err := do(ctx, cfg, round, obs, fn)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if !IsTransient(err) {
			return zero, err
		}
		if ack == nil || !ack(ctx, err) {
			obs.emit(Event{Type: EventAbandoned, Round: round, Error: err})
			return zero, &AbandonedError{Rounds: round, Err: err}
		}
		obs.emit(Event{Type: EventResumed, Round: round + 1, Error: err})
	}
}
