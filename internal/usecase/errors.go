package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/propboard/internal/domain/sourcehealth"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

type ProviderErrorKind string

const (
	ProviderErrorTimeout     ProviderErrorKind = "TIMEOUT"
	ProviderErrorRateLimited ProviderErrorKind = "RATE_LIMITED"
	ProviderErrorBadResponse ProviderErrorKind = "BAD_RESPONSE"
	ProviderErrorNetwork     ProviderErrorKind = "NETWORK"
)

// Outcome maps an error kind to what the health tracker stores.
func (k ProviderErrorKind) Outcome() sourcehealth.Outcome {
	if k == ProviderErrorRateLimited {
		return sourcehealth.OutcomeRateLimited
	}
	return sourcehealth.OutcomeErrored
}

// ProviderError is the only error a Source returns from Fetch.
type ProviderError struct {
	Kind       ProviderErrorKind
	ProviderID string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func NewProviderError(providerID string, kind ProviderErrorKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, ProviderID: providerID, Err: err}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s: %s", e.ProviderID, e.Kind)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status=%d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is lets callers match any provider failure against ErrDependencyUnavailable.
func (e *ProviderError) Is(target error) bool {
	return target == ErrDependencyUnavailable
}

// ProviderErrorKindOf classifies an arbitrary Fetch error. A bare deadline
// is a timeout; anything else that is not a *ProviderError is a network
// failure.
func ProviderErrorKindOf(err error) ProviderErrorKind {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.Kind != "" {
		return providerErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ProviderErrorTimeout
	}
	return ProviderErrorNetwork
}
