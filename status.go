package perpetual

import (
	"net/http"
	"strconv"
	"time"
)

// CategorizeStatus maps the HTTP status of a failed provider call to an
// ErrorCategory. Unknown statuses are permanent.
func CategorizeStatus(code int) ErrorCategory {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code >= 500 && code < 600:
		return ErrorTransient
	case code == http.StatusBadRequest,
		code == http.StatusNotFound,
		code == http.StatusRequestEntityTooLarge,
		code == http.StatusUnprocessableEntity:
		return ErrorUserInput
	default:
		return ErrorPermanent
	}
}

// RetryAfterHeader reads a Retry-After header given in seconds or as an
// HTTP date. It returns 0 when the header is absent, unparsable or past.
func RetryAfterHeader(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// NewStatusError wraps the error of a failed provider call. A server that
// asks the client to wait makes the error transient whatever its status.
func NewStatusError(provider string, code int, retryAfter time.Duration, cause error) *Error {
	cat := CategorizeStatus(code)
	if retryAfter > 0 {
		cat = ErrorTransient
	}
	return &Error{Msg: provider + " request failed", Cat: cat, Code: code, RetryDelay: retryAfter, Cause: cause}
}
