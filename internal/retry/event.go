package retry

import "time"

// EventType identifies the kind of event occurring during retry execution.
type EventType string

const (
	// EventAttemptFailed fires after a failed attempt.
	EventAttemptFailed EventType = "attempt_failed"

	// EventRetrying fires before sleeping between attempts.
	EventRetrying EventType = "retrying"

	// EventExhausted fires when a round of attempts is used up.
	EventExhausted EventType = "exhausted"

	// EventResumed fires when the operator acknowledges a failure and a new
	// round starts.
	EventResumed EventType = "resumed"

	// EventAbandoned fires when the operator gives up.
	EventAbandoned EventType = "abandoned"
)

// Event represents an observable occurrence during retry execution.
type Event struct {
	Type EventType

	// Attempt is the current attempt number within the round (1-indexed).
	Attempt int

	// MaxAttempts is the number of attempts per round.
	MaxAttempts int

	// Round counts operator acknowledgements plus one.
	Round int

	// Error contains the error from a failed attempt.
	Error error

	// Delay is the duration before the next attempt (for EventRetrying).
	Delay time.Duration

	// Retryable indicates whether the error was classified as transient.
	Retryable bool

	Timestamp time.Time
}

// Observer receives retry events synchronously.
type Observer func(Event)

func (o Observer) emit(event Event) {
	if o == nil {
		return
	}
	event.Timestamp = time.Now()
	o(event)
}
