package retry

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	ai "github.com/spetersoncode/perpetual"
)

// ErrAbandoned is matched by errors.Is when the operator declined to resume
// a call whose retries were exhausted.
var ErrAbandoned = errors.New("abandoned by operator")

// AbandonedError carries the failure the operator gave up on.
type AbandonedError struct {
	Rounds int
	Err    error
}

func (e *AbandonedError) Error() string {
	return fmt.Sprintf("%v after %d round(s): %v", ErrAbandoned, e.Rounds, e.Err)
}

func (e *AbandonedError) Unwrap() error { return e.Err }

// Is reports true for ErrAbandoned.
func (e *AbandonedError) Is(target error) bool { return target == ErrAbandoned }

// statusCoder is implemented by the Anthropic and OpenAI SDK errors.
type statusCoder interface {
	StatusCode() int
}

// IsTransient determines if an error is transient and should be retried.
// Categorized errors decide for themselves; anything else is judged by its
// status code, its network failure kind, or its message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce ai.CategorizedError
	if errors.As(err, &ce) {
		return ce.Category() == ai.ErrorTransient
	}

	var sc statusCoder
	if errors.As(err, &sc) && isTransientStatusCode(sc.StatusCode()) {
		return true
	}

	return isTransientNetworkError(err)
}

func isTransientStatusCode(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}

var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"rate limit",
	"server error",
	"bad gateway",
	"gateway timeout",
	"error 429",
	"error 503",
}

func isTransientNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ETIMEDOUT:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
