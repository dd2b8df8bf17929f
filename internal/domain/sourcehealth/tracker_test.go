package sourcehealth

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ConsecutiveFailures(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }

	tracker.RecordOutcome("espn", OutcomeErrored)
	tracker.RecordOutcome("espn", OutcomeRateLimited)
	state, ok := tracker.State("espn")
	require.True(t, ok)
	assert.Equal(t, 2, state.ConsecutiveFailures)
	assert.Equal(t, OutcomeRateLimited, state.LastOutcome)
	assert.Equal(t, now, state.LastCheckedAt)

	now = now.Add(time.Minute)
	state = tracker.RecordOutcome("espn", OutcomeOK)
	assert.Equal(t, 0, state.ConsecutiveFailures)
	assert.Equal(t, now, state.LastCheckedAt)

	_, ok = tracker.State("unknown")
	assert.False(t, ok)
}

func TestTracker_SnapshotGroupsByLastOutcome(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	assert.Equal(t, Snapshot{Successful: []string{}, RateLimited: []string{}, Errored: []string{}}, tracker.Snapshot())

	tracker.RecordOutcome("propmarket", OutcomeRateLimited)
	tracker.RecordOutcome("espn", OutcomeOK)
	tracker.RecordOutcome("propgen", OutcomeErrored)
	tracker.RecordOutcome("balldontlie", OutcomeRateLimited)

	snap := tracker.Snapshot()
	assert.Equal(t, []string{"espn"}, snap.Successful)
	assert.Equal(t, []string{"balldontlie", "propmarket"}, snap.RateLimited)
	assert.Equal(t, []string{"propgen"}, snap.Errored)
}

func TestTracker_ConcurrentWritesAreNotLost(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	const (
		providers = 8
		calls     = 200
	)

	var wg sync.WaitGroup
	for p := 0; p < providers; p++ {
		id := fmt.Sprintf("provider-%d", p)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < calls; i++ {
				tracker.RecordOutcome(id, OutcomeErrored)
				_ = tracker.Snapshot()
			}
		}()
	}
	wg.Wait()

	states := tracker.States()
	require.Len(t, states, providers)
	for _, state := range states {
		assert.Equal(t, calls, state.ConsecutiveFailures, state.ProviderID)
	}
}
