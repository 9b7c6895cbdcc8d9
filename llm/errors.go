package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/spetersoncode/perpetual/internal/retry"
)

// ErrAbandoned is matched by errors.Is when the operator gave up on a call
// whose retries were exhausted. It is the only error the agent loop treats
// as fatal.
var ErrAbandoned = retry.ErrAbandoned

// UnknownModelError is returned for a model the client cannot route.
type UnknownModelError struct {
	Model string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q", e.Model)
}

// MissingAPIKeyError is returned when a model's provider has no key configured.
type MissingAPIKeyError struct {
	Provider string
	Model    string
}

func (e *MissingAPIKeyError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("no API key configured for %s (required by model %q)", e.Provider, e.Model)
	}
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// BudgetError is returned when even the pinned part of a conversation cannot
// fit the token budget.
type BudgetError struct {
	Budget int
	Needed int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("conversation needs at least %d tokens but the budget is %d", e.Needed, e.Budget)
}

// IsFatal reports whether err should end an agent session: the operator
// abandoned a call, the context was cancelled, or the client is
// misconfigured so that no later call could succeed either.
func IsFatal(err error) bool {
	var unknown *UnknownModelError
	var missing *MissingAPIKeyError
	return errors.Is(err, ErrAbandoned) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &unknown) ||
		errors.As(err, &missing)
}
