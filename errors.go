package perpetual

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyInput is returned when a required input slice is empty.
var ErrEmptyInput = errors.New("empty input")

// ErrorCategory says what the loop should do about a failed model call.
type ErrorCategory string

const (
	// ErrorTransient failures are retried: rate limits, overload, dropped
	// connections.
	ErrorTransient ErrorCategory = "transient"

	// ErrorPermanent failures are not retried: bad keys, unknown models.
	ErrorPermanent ErrorCategory = "permanent"

	// ErrorUserInput failures come from the request itself, such as a
	// malformed tool schema or a context window overflow.
	ErrorUserInput ErrorCategory = "user_input"
)

// CategorizedError is implemented by errors that carry an ErrorCategory.
// Provider adapters return them so the retry envelope can decide without
// knowing the vendor's error types.
type CategorizedError interface {
	error
	Category() ErrorCategory
	StatusCode() int           // HTTP status, 0 when unknown
	RetryAfter() time.Duration // server-suggested delay, 0 when absent
}

// Error is the CategorizedError returned by the provider adapters.
type Error struct {
	Msg        string
	Cat        ErrorCategory
	Code       int
	RetryDelay time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
}

func (e *Error) Unwrap() error             { return e.Cause }
func (e *Error) Category() ErrorCategory   { return e.Cat }
func (e *Error) StatusCode() int           { return e.Code }
func (e *Error) RetryAfter() time.Duration { return e.RetryDelay }
func (e *Error) Retryable() bool           { return e.Cat == ErrorTransient }

// NewTransientError returns an error the retry envelope will retry.
func NewTransientError(msg string, statusCode int, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorTransient, Code: statusCode, Cause: cause}
}

// NewTransientErrorWithRetry is NewTransientError with the delay the
// provider asked for, usually from a Retry-After header.
func NewTransientErrorWithRetry(msg string, statusCode int, retryAfter time.Duration, cause error) *Error {
	e := NewTransientError(msg, statusCode, cause)
	e.RetryDelay = retryAfter
	return e
}

// NewPermanentError returns an error that fails the call immediately.
func NewPermanentError(msg string, statusCode int, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorPermanent, Code: statusCode, Cause: cause}
}

// NewUserInputError returns an error caused by the request content.
func NewUserInputError(msg string, statusCode int, cause error) *Error {
	return &Error{Msg: msg, Cat: ErrorUserInput, Code: statusCode, Cause: cause}
}

func categorized(err error) (CategorizedError, bool) {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

func hasCategory(err error, cat ErrorCategory) bool {
	ce, ok := categorized(err)
	return ok && ce.Category() == cat
}

// IsTransient reports whether err or an error it wraps is transient.
func IsTransient(err error) bool { return hasCategory(err, ErrorTransient) }

// IsPermanent reports whether err or an error it wraps is permanent.
func IsPermanent(err error) bool { return hasCategory(err, ErrorPermanent) }

// IsUserInput reports whether err or an error it wraps was caused by the
// request content.
func IsUserInput(err error) bool { return hasCategory(err, ErrorUserInput) }

// StatusCodeOf returns the HTTP status carried by err, or 0.
func StatusCodeOf(err error) int {
	if ce, ok := categorized(err); ok {
		return ce.StatusCode()
	}
	return 0
}

// RetryAfterOf returns the retry delay carried by err, or 0.
func RetryAfterOf(err error) time.Duration {
	if ce, ok := categorized(err); ok {
		return ce.RetryAfter()
	}
	return 0
}
