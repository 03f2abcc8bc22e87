package providers

import (
	"errors"
	"fmt"
)

// FailureKind classifies an adapter failure for fallback and telemetry.
type FailureKind string

const (
	FailureRateLimited   FailureKind = "rate_limited"
	FailureTimeout       FailureKind = "timeout"
	FailureProviderError FailureKind = "provider_error"
	FailureCanceled      FailureKind = "canceled"
)

// CallError is a typed adapter failure. Every adapter wraps SDK errors in a
// CallError so the router can branch on the kind without knowing the SDK.
type CallError struct {
	Provider string
	Kind     FailureKind
	Err      error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewCallError wraps err with the given kind.
func NewCallError(provider string, kind FailureKind, err error) *CallError {
	return &CallError{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from err, defaulting to provider_error
// for anything that is not a CallError.
func KindOf(err error) FailureKind {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}
	return FailureProviderError
}
