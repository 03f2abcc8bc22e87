package routing

import (
	"fmt"

	"github.com/adaptivekit/cost-router/internal/budget"
)

// BudgetExceededError is returned before any execution when the budget guard
// reports the request may not proceed.
type BudgetExceededError struct {
	Status budget.Status
}

func (e *BudgetExceededError) Error() string {
	if e.Status.Reason != "" {
		return fmt.Sprintf("budget exceeded: %s", e.Status.Reason)
	}
	return "budget exceeded"
}

// AllProvidersFailedError is the terminal failure after the primary and the
// single fallback attempt both failed (or no fallback candidate existed). It
// carries both underlying errors.
type AllProvidersFailedError struct {
	PrimaryProvider  string
	FallbackProvider string
	PrimaryErr       error
	FallbackErr      error
}

func (e *AllProvidersFailedError) Error() string {
	if e.FallbackProvider == "" {
		return fmt.Sprintf("all providers failed: %s failed (%v) and no fallback was available (%v)",
			e.PrimaryProvider, e.PrimaryErr, e.FallbackErr)
	}
	return fmt.Sprintf("all providers failed: %s failed (%v), fallback %s failed (%v)",
		e.PrimaryProvider, e.PrimaryErr, e.FallbackProvider, e.FallbackErr)
}

func (e *AllProvidersFailedError) Unwrap() error {
	return e.PrimaryErr
}
