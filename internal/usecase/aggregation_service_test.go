package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/propboard/internal/domain/game"
	"github.com/riskibarqy/propboard/internal/domain/prediction"
	"github.com/riskibarqy/propboard/internal/domain/rawdata"
	"github.com/riskibarqy/propboard/internal/domain/sourcehealth"
	"github.com/riskibarqy/propboard/internal/domain/team"
	rawdatamock "github.com/riskibarqy/propboard/internal/mocks/domain/rawdata"
	"github.com/riskibarqy/propboard/internal/platform/id"
	"github.com/riskibarqy/propboard/internal/platform/logging"
	"github.com/riskibarqy/propboard/internal/platform/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	id      string
	kind    PayloadKind
	timeout time.Duration
	payload SourcePayload
	err     error
	// release, when set, blocks Fetch until closed regardless of ctx.
	release chan struct{}
	// waitForCtx blocks Fetch until its context ends and returns ctx.Err().
	waitForCtx bool
	calls      atomic.Int32
}

func (s *stubSource) ID() string             { return s.id }
func (s *stubSource) Kind() PayloadKind      { return s.kind }
func (s *stubSource) Timeout() time.Duration { return s.timeout }

func (s *stubSource) Fetch(ctx context.Context, _ string) (SourcePayload, error) {
	s.calls.Add(1)
	if s.waitForCtx {
		<-ctx.Done()
		return SourcePayload{}, ctx.Err()
	}
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return SourcePayload{}, s.err
	}
	return s.payload, nil
}

func scheduleSource(id string, games ...ExternalGame) *stubSource {
	return &stubSource{
		id:      id,
		kind:    PayloadSchedule,
		timeout: time.Second,
		payload: SourcePayload{
			Kind:       PayloadSchedule,
			TeamFormat: TeamFormatAbbreviation,
			Games:      games,
			Raw:        []RawPayload{{URL: "https://example.test/" + id, Body: []byte(`{"events":[]}`), FetchedAt: time.Now()}},
		},
	}
}

func predictionSource(id string, items ...ExternalPrediction) *stubSource {
	return &stubSource{
		id:      id,
		kind:    PayloadPredictions,
		timeout: time.Second,
		payload: SourcePayload{
			Kind:        PayloadPredictions,
			TeamFormat:  TeamFormatAbbreviation,
			Predictions: items,
			Raw:         []RawPayload{{URL: "https://example.test/" + id, Body: []byte(`{"data":[]}`), FetchedAt: time.Now()}},
		},
	}
}

func failingSource(id string, kind ProviderErrorKind) *stubSource {
	return &stubSource{
		id:      id,
		kind:    PayloadPredictions,
		timeout: time.Second,
		err:     &ProviderError{Kind: kind, ProviderID: id, StatusCode: 429, RetryAfter: 30 * time.Second},
	}
}

func prop(player, teamAbbr string, confidence float64) ExternalPrediction {
	return ExternalPrediction{
		Player:     player,
		Team:       teamAbbr,
		PropType:   "points",
		Line:       24.5,
		Direction:  prediction.DirectionOver,
		Confidence: confidence,
	}
}

func newTestService(t *testing.T, cfg AggregationConfig, archive rawdata.Repository, sources map[string][]Source) *AggregationService {
	t.Helper()

	registry := NewSourceRegistry()
	for sport, items := range sources {
		for _, src := range items {
			require.NoError(t, registry.Register(src, sport))
		}
	}
	return NewAggregationService(registry, team.Default(), sourcehealth.NewTracker(), archive, id.Static("run-1"), cfg, logging.NewNop())
}

func TestAggregationService_FinalGameFiltersPredictions(t *testing.T) {
	t.Parallel()

	archive := rawdatamock.NewRepository(t)
	archive.
		On("UpsertMany", mock.Anything, mock.MatchedBy(func(items []rawdata.Payload) bool {
			return len(items) == 2 && items[0].RunID == "run-1" && items[0].PayloadHash != ""
		})).
		Return(nil).
		Once()

	schedule := scheduleSource("espn", ExternalGame{
		ExternalID: "401",
		HomeTeam:   "NYK",
		AwayTeam:   "BOS",
		HomeScore:  110,
		AwayScore:  104,
		Status:     game.StatusFinal,
	})
	props := predictionSource("propmarket",
		prop("Jalen Brunson", "NY", 80),
		prop("LeBron James", "LAL", 50),
	)

	service := newTestService(t, AggregationConfig{}, archive, map[string][]Source{"nba": {schedule, props}})

	got, err := service.Aggregate(context.Background(), " NBA ")
	require.NoError(t, err)

	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "nba", got.Sport)
	assert.True(t, got.Usable)
	assert.Empty(t, got.ByTier.TopPicks)
	require.Len(t, got.ByTier.Risky, 1)
	assert.Equal(t, "LeBron James", got.ByTier.Risky[0].Player)
	assert.Equal(t, team.ID("LAL"), got.ByTier.Risky[0].Team)
	assert.Equal(t, "propmarket", got.ByTier.Risky[0].Source)
	require.Len(t, got.Predictions, 1)
	assert.Equal(t, 1, got.Stats.CompletedFiltered)
	assert.Equal(t, 1, got.Stats.GamesSeen)
	assert.Equal(t, []string{"espn", "propmarket"}, got.SourceStatus.Successful)
}

func TestAggregationService_AllProvidersRateLimited(t *testing.T) {
	t.Parallel()

	sources := []Source{
		failingSource("propmarket", ProviderErrorRateLimited),
		failingSource("propgen", ProviderErrorRateLimited),
		failingSource("espn", ProviderErrorRateLimited),
	}
	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nhl": sources})

	got, err := service.Aggregate(context.Background(), "nhl")
	require.NoError(t, err)

	assert.NotNil(t, got.Predictions)
	assert.Empty(t, got.Predictions)
	assert.Equal(t, 0, got.ByTier.Len())
	assert.NotNil(t, got.ByTier.TopPicks)
	assert.NotNil(t, got.ByTier.Risky)
	assert.False(t, got.Usable)
	assert.Equal(t, []string{"espn", "propgen", "propmarket"}, got.SourceStatus.RateLimited)
	assert.Empty(t, got.SourceStatus.Successful)
	assert.Empty(t, got.SourceStatus.Errored)
	for _, run := range got.Providers {
		assert.Equal(t, sourcehealth.OutcomeRateLimited, run.Outcome, run.ProviderID)
		assert.Equal(t, ProviderErrorRateLimited, run.ErrorKind, run.ProviderID)
		assert.Equal(t, int64(30), run.RetryAfterSeconds, run.ProviderID)
	}
}

func TestAggregationService_SlowProviderAbandonedAtCeiling(t *testing.T) {
	t.Parallel()

	fastA := predictionSource("propmarket", prop("Auston Matthews", "TOR", 77))
	fastA.timeout = 50 * time.Millisecond
	fastB := predictionSource("propgen", prop("Connor McDavid", "EDM", 66))
	fastB.timeout = 50 * time.Millisecond
	slow := predictionSource("slowbook", prop("Nathan MacKinnon", "COL", 90))
	slow.timeout = 100 * time.Millisecond
	slow.release = make(chan struct{})
	t.Cleanup(func() { close(slow.release) })

	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nhl": {fastA, fastB, slow}})

	start := time.Now()
	got, err := service.Aggregate(context.Background(), "nhl")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, []string{"slowbook"}, got.SourceStatus.Errored)
	assert.Equal(t, []string{"propgen", "propmarket"}, got.SourceStatus.Successful)
	require.Len(t, got.ByTier.TopPicks, 1)
	assert.Equal(t, "Auston Matthews", got.ByTier.TopPicks[0].Player)
	require.Len(t, got.ByTier.GoodValue, 1)
	assert.Equal(t, "Connor McDavid", got.ByTier.GoodValue[0].Player)
	assert.Equal(t, ProviderErrorTimeout, got.Providers[2].ErrorKind)
	assert.True(t, got.Usable)

	state, ok := service.Tracker().State("slowbook")
	require.True(t, ok)
	assert.Equal(t, sourcehealth.OutcomeErrored, state.LastOutcome)
	assert.Equal(t, 1, state.ConsecutiveFailures)
}

func TestAggregationService_LateResultIsDiscarded(t *testing.T) {
	t.Parallel()

	slow := predictionSource("slowbook", prop("Nathan MacKinnon", "COL", 90))
	slow.timeout = 30 * time.Millisecond
	slow.release = make(chan struct{})

	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nhl": {slow}})

	got, err := service.Aggregate(context.Background(), "nhl")
	require.NoError(t, err)
	assert.Empty(t, got.Predictions)
	assert.Equal(t, []string{"slowbook"}, got.SourceStatus.Errored)

	close(slow.release)
	time.Sleep(50 * time.Millisecond)

	state, ok := service.Tracker().State("slowbook")
	require.True(t, ok)
	assert.Equal(t, sourcehealth.OutcomeErrored, state.LastOutcome)
	assert.Equal(t, 1, state.ConsecutiveFailures)
}

func TestAggregationService_CallerCancelIsNotRecorded(t *testing.T) {
	t.Parallel()

	blocked := predictionSource("propmarket", prop("Jayson Tatum", "BOS", 58))
	blocked.timeout = 5 * time.Second
	blocked.waitForCtx = true
	stuck := predictionSource("propgen", prop("Jaylen Brown", "BOS", 70))
	stuck.timeout = 5 * time.Second
	stuck.release = make(chan struct{})
	t.Cleanup(func() { close(stuck.release) })

	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nba": {blocked, stuck}})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err := service.Aggregate(ctx, "nba")
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)

	for _, providerID := range []string{"propmarket", "propgen"} {
		_, ok := service.Tracker().State(providerID)
		assert.False(t, ok, providerID)
	}
	assert.Empty(t, service.Tracker().Snapshot().Errored)
}

func TestAggregationService_DropsUnknownTeams(t *testing.T) {
	t.Parallel()

	props := predictionSource("propmarket",
		prop("Mystery Player", "ZZZ", 90),
		prop("Stephen Curry", "GS", 68),
	)
	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nba": {props}})

	got, err := service.Aggregate(context.Background(), "nba")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.UnresolvedTeams)
	require.Len(t, got.Predictions, 1)
	assert.Equal(t, team.ID("GSW"), got.Predictions[0].Team)
	require.Len(t, got.ByTier.GoodValue, 1)
}

func TestAggregationService_ResolvesFullTeamNames(t *testing.T) {
	t.Parallel()

	props := predictionSource("propgen", prop("Jalen Brunson", "New York Knicks", 80))
	props.payload.TeamFormat = TeamFormatName
	schedule := scheduleSource("espn", ExternalGame{ExternalID: "1", HomeTeam: "NY", AwayTeam: "MIA", Status: game.StatusFinal})

	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nba": {schedule, props}})

	got, err := service.Aggregate(context.Background(), "nba")
	require.NoError(t, err)
	assert.Empty(t, got.Predictions)
	assert.Equal(t, 1, got.Stats.CompletedFiltered)
}

func TestAggregationService_NameProviderUsesOwnTeamEntries(t *testing.T) {
	t.Parallel()

	props := predictionSource("propgen", prop("LeBron James", "LA", 81))
	props.payload.TeamFormat = TeamFormatName
	other := predictionSource("propmarket", prop("Anthony Davis", "LA", 70))

	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nba": {props, other}})

	got, err := service.Aggregate(context.Background(), "nba")
	require.NoError(t, err)
	require.Len(t, got.Predictions, 1)
	assert.Equal(t, team.ID("LAL"), got.Predictions[0].Team)
	assert.Equal(t, "propgen", got.Predictions[0].Source)
	assert.Equal(t, 1, got.Stats.UnresolvedTeams)
}

func TestAggregationService_MergesDuplicatesAcrossProviders(t *testing.T) {
	t.Parallel()

	first := predictionSource("propmarket", prop("Nikola Jokic", "DEN", 60))
	second := predictionSource("propgen", prop("nikola jokic", "DEN", 78))
	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nba": {first, second}})

	got, err := service.Aggregate(context.Background(), "nba")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.DuplicatesMerged)
	require.Len(t, got.ByTier.TopPicks, 1)
	assert.Equal(t, "propgen", got.ByTier.TopPicks[0].Source)
	assert.Empty(t, got.ByTier.Leans)
}

func TestAggregationService_ContractViolationSurfaces(t *testing.T) {
	t.Parallel()

	props := predictionSource("propmarket", prop("Broken Score", "BOS", 120))
	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{"nba": {props}})

	_, err := service.Aggregate(context.Background(), "nba")
	require.Error(t, err)
	assert.True(t, errors.Is(err, prediction.ErrClassificationContract))
}

func TestAggregationService_InvalidSport(t *testing.T) {
	t.Parallel()

	service := newTestService(t, AggregationConfig{}, nil, nil)

	for _, sport := range []string{"", "  ", "cricket"} {
		_, err := service.Aggregate(context.Background(), sport)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("sport %q: expected ErrInvalidInput, got %v", sport, err)
		}
	}
}

func TestAggregationService_NoSourcesIsEmptyResult(t *testing.T) {
	t.Parallel()

	service := newTestService(t, AggregationConfig{}, nil, nil)

	got, err := service.Aggregate(context.Background(), "mlb")
	require.NoError(t, err)
	assert.Empty(t, got.Predictions)
	assert.False(t, got.Usable)
	assert.Empty(t, got.Providers)
}

func TestAggregationService_OpenCircuitSkipsProvider(t *testing.T) {
	t.Parallel()

	broken := failingSource("propmarket", ProviderErrorBadResponse)
	healthy := predictionSource("propgen", prop("Jayson Tatum", "BOS", 58))
	cfg := AggregationConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 1,
		OpenTimeout:      time.Hour,
	}}
	service := newTestService(t, cfg, nil, map[string][]Source{"nba": {broken, healthy}})

	first, err := service.Aggregate(context.Background(), "nba")
	require.NoError(t, err)
	assert.Equal(t, []string{"propmarket"}, first.SourceStatus.Errored)

	second, err := service.Aggregate(context.Background(), "nba")
	require.NoError(t, err)
	assert.Equal(t, int32(1), broken.calls.Load())
	assert.True(t, second.Providers[0].Skipped)
	assert.Equal(t, 1, second.Stats.ProvidersSkipped)
	require.Len(t, second.ByTier.Leans, 1)

	report := service.SourceHealth()
	require.Len(t, report.Providers, 2)
	assert.Equal(t, "propgen", report.Providers[0].ProviderID)
	assert.Equal(t, resilience.CircuitStateClosed, report.Providers[0].Circuit)
	assert.Equal(t, "propmarket", report.Providers[1].ProviderID)
	assert.Equal(t, resilience.CircuitStateOpen, report.Providers[1].Circuit)
}

func TestAggregationService_ArchiveFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	archive := rawdatamock.NewRepository(t)
	archive.On("UpsertMany", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()

	props := predictionSource("propmarket", prop("Jayson Tatum", "BOS", 58))
	service := newTestService(t, AggregationConfig{}, archive, map[string][]Source{"nba": {props}})

	got, err := service.Aggregate(context.Background(), "nba")
	require.NoError(t, err)
	assert.Len(t, got.Predictions, 1)
}

func TestAggregationService_AggregateSportsKeepsInputOrder(t *testing.T) {
	t.Parallel()

	service := newTestService(t, AggregationConfig{}, nil, map[string][]Source{
		"nba": {predictionSource("propmarket", prop("Jayson Tatum", "BOS", 58))},
		"nhl": {predictionSource("propgen", prop("Auston Matthews", "TOR", 77))},
	})

	got, err := service.AggregateSports(context.Background(), []string{"NHL", "nba", "nhl", ""})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "nhl", got[0].Sport)
	assert.Equal(t, "nba", got[1].Sport)

	_, err = service.AggregateSports(context.Background(), []string{"nba", "cricket"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = service.AggregateSports(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSourceRegistry_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	registry := NewSourceRegistry()
	src := predictionSource("propmarket")
	require.NoError(t, registry.Register(src, "nba", "NHL"))
	assert.ErrorIs(t, registry.Register(src, "nba"), ErrInvalidInput)
	assert.ErrorIs(t, registry.Register(predictionSource("x")), ErrInvalidInput)
	assert.Equal(t, []string{"nba", "nhl"}, registry.Sports())
	assert.Equal(t, []string{"propmarket"}, registry.ProviderIDs())
	assert.Len(t, registry.Sources("nhl"), 1)
}

func TestProviderErrorKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ProviderErrorRateLimited, ProviderErrorKindOf(&ProviderError{Kind: ProviderErrorRateLimited}))
	assert.Equal(t, ProviderErrorTimeout, ProviderErrorKindOf(context.DeadlineExceeded))
	assert.Equal(t, ProviderErrorNetwork, ProviderErrorKindOf(errors.New("connection reset")))
	assert.Equal(t, sourcehealth.OutcomeRateLimited, ProviderErrorRateLimited.Outcome())
	assert.Equal(t, sourcehealth.OutcomeErrored, ProviderErrorTimeout.Outcome())
	assert.ErrorIs(t, NewProviderError("espn", ProviderErrorNetwork, errors.New("x")), ErrDependencyUnavailable)
}
