package resilience

import (
	"errors"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// FailureGate is a stateless breaker: it derives its state from the
// consecutive failure count and last check time recorded elsewhere, so the
// health tracker stays the only place provider outcomes are stored.
type FailureGate struct {
	failureThreshold int
	openTimeout      time.Duration
	enabled          bool
	now              func() time.Time
}

func NewFailureGate(cfg CircuitBreakerConfig) *FailureGate {
	cfg = NormalizeCircuitBreakerConfig(cfg)
	return &FailureGate{
		failureThreshold: cfg.FailureThreshold,
		openTimeout:      cfg.OpenTimeout,
		enabled:          cfg.Enabled,
		now:              time.Now,
	}
}

// State reports the breaker state for a provider with the given history.
// After openTimeout has passed since the last failed check the gate is
// half-open and lets the next call through as a probe.
func (g *FailureGate) State(consecutiveFailures int, lastCheckedAt time.Time) CircuitState {
	if g == nil || !g.enabled || consecutiveFailures < g.failureThreshold {
		return CircuitStateClosed
	}
	if g.now().Sub(lastCheckedAt) >= g.openTimeout {
		return CircuitStateHalfOpen
	}
	return CircuitStateOpen
}

func (g *FailureGate) Allow(consecutiveFailures int, lastCheckedAt time.Time) error {
	if g.State(consecutiveFailures, lastCheckedAt) == CircuitStateOpen {
		return ErrCircuitOpen
	}
	return nil
}
