package sourcehealth

import (
	"sort"
	"sync"
	"time"
)

type Outcome string

const (
	OutcomeOK          Outcome = "OK"
	OutcomeRateLimited Outcome = "RATE_LIMITED"
	OutcomeErrored     Outcome = "ERRORED"
)

// ProviderState is what the tracker knows about one provider.
type ProviderState struct {
	ProviderID          string
	LastOutcome         Outcome
	LastCheckedAt       time.Time
	ConsecutiveFailures int
}

// Snapshot groups provider ids by their last outcome. Each list is sorted.
type Snapshot struct {
	Successful  []string
	RateLimited []string
	Errored     []string
}

// Tracker records the latest outcome per provider. It lives as long as the
// process and is shared by reference; RecordOutcome is its only writer.
type Tracker struct {
	mu        sync.RWMutex
	providers map[string]ProviderState
	now       func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		providers: make(map[string]ProviderState),
		now:       time.Now,
	}
}

// RecordOutcome stores the result of one provider call.
func (t *Tracker) RecordOutcome(providerID string, outcome Outcome) ProviderState {
	t.mu.Lock()
	defer t.mu.Unlock()

	state := t.providers[providerID]
	state.ProviderID = providerID
	state.LastOutcome = outcome
	state.LastCheckedAt = t.now().UTC()
	if outcome == OutcomeOK {
		state.ConsecutiveFailures = 0
	} else {
		state.ConsecutiveFailures++
	}
	t.providers[providerID] = state
	return state
}

func (t *Tracker) State(providerID string) (ProviderState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.providers[providerID]
	return state, ok
}

// States returns every known provider ordered by id.
func (t *Tracker) States() []ProviderState {
	t.mu.RLock()
	out := make([]ProviderState, 0, len(t.providers))
	for _, state := range t.providers {
		out = append(out, state)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ProviderID < out[j].ProviderID
	})
	return out
}

func (t *Tracker) Snapshot() Snapshot {
	snap := Snapshot{
		Successful:  []string{},
		RateLimited: []string{},
		Errored:     []string{},
	}
	for _, state := range t.States() {
		switch state.LastOutcome {
		case OutcomeOK:
			snap.Successful = append(snap.Successful, state.ProviderID)
		case OutcomeRateLimited:
			snap.RateLimited = append(snap.RateLimited, state.ProviderID)
		default:
			snap.Errored = append(snap.Errored, state.ProviderID)
		}
	}
	return snap
}
