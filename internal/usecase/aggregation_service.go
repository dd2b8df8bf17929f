package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/propboard/internal/domain/game"
	"github.com/riskibarqy/propboard/internal/domain/prediction"
	"github.com/riskibarqy/propboard/internal/domain/rawdata"
	"github.com/riskibarqy/propboard/internal/domain/sourcehealth"
	"github.com/riskibarqy/propboard/internal/domain/team"
	"github.com/riskibarqy/propboard/internal/platform/id"
	"github.com/riskibarqy/propboard/internal/platform/logging"
	"github.com/riskibarqy/propboard/internal/platform/resilience"
	"github.com/sourcegraph/conc/iter"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultProviderTimeout = 10 * time.Second

type TeamResolver interface {
	Resolve(providerID, rawAbbr, sport string) (team.ID, error)
	CanonicalizeFor(providerID, name, sport string) (team.ID, error)
	Supports(sport string) bool
}

type AggregationConfig struct {
	// DefaultTimeout applies to sources that report no timeout of their own.
	DefaultTimeout time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// ProviderRun describes what one provider contributed to one aggregate.
type ProviderRun struct {
	ProviderID string               `json:"providerId"`
	Kind       PayloadKind          `json:"kind"`
	Outcome    sourcehealth.Outcome `json:"outcome,omitempty"`
	ErrorKind  ProviderErrorKind    `json:"errorKind,omitempty"`
	Skipped    bool                 `json:"skipped,omitempty"`
	Records    int                  `json:"records"`
	DurationMs int64                `json:"durationMs"`
	Message    string               `json:"message,omitempty"`
	// RetryAfterSeconds echoes a rate-limited provider's Retry-After hint.
	RetryAfterSeconds int64 `json:"retryAfterSeconds,omitempty"`
}

type AggregateStats struct {
	ProvidersQueried   int `json:"providersQueried"`
	ProvidersSucceeded int `json:"providersSucceeded"`
	ProvidersSkipped   int `json:"providersSkipped"`
	GamesSeen          int `json:"gamesSeen"`
	UnresolvedTeams    int `json:"unresolvedTeams"`
	DuplicatesMerged   int `json:"duplicatesMerged"`
	CompletedFiltered  int `json:"completedFiltered"`
}

// AggregateResult is built fresh by every Aggregate call and not changed
// afterwards.
type AggregateResult struct {
	RunID        string
	Sport        string
	GeneratedAt  time.Time
	Usable       bool
	Predictions  []prediction.Record
	ByTier       prediction.Tiers
	SourceStatus sourcehealth.Snapshot
	Providers    []ProviderRun
	Stats        AggregateStats
}

type ProviderHealth struct {
	sourcehealth.ProviderState
	Circuit    resilience.CircuitState
	Registered bool
}

type HealthReport struct {
	Snapshot  sourcehealth.Snapshot
	Providers []ProviderHealth
}

type AggregationService struct {
	registry *SourceRegistry
	resolver TeamResolver
	tracker  *sourcehealth.Tracker
	gate     *resilience.FailureGate
	archive  rawdata.Repository
	ids      id.Generator
	cfg      AggregationConfig
	logger   *logging.Logger
	metrics  *aggregationMetrics
	now      func() time.Time
}

func NewAggregationService(
	registry *SourceRegistry,
	resolver TeamResolver,
	tracker *sourcehealth.Tracker,
	archive rawdata.Repository,
	ids id.Generator,
	cfg AggregationConfig,
	logger *logging.Logger,
) *AggregationService {
	if registry == nil {
		registry = NewSourceRegistry()
	}
	if tracker == nil {
		tracker = sourcehealth.NewTracker()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultProviderTimeout
	}

	return &AggregationService{
		registry: registry,
		resolver: resolver,
		tracker:  tracker,
		gate:     resilience.NewFailureGate(cfg.CircuitBreaker),
		archive:  archive,
		ids:      ids,
		cfg:      cfg,
		logger:   logger,
		metrics:  newAggregationMetrics(),
		now:      time.Now,
	}
}

func (s *AggregationService) Registry() *SourceRegistry {
	return s.registry
}

func (s *AggregationService) Tracker() *sourcehealth.Tracker {
	return s.tracker
}

type fetchOutcome struct {
	index     int
	payload   SourcePayload
	err       error
	elapsed   time.Duration
	abandoned bool
	run       ProviderRun
}

// Aggregate queries every source registered for the sport and returns one
// tiered view. Provider and record failures never fail the call; only an
// invalid sport or a classification contract violation does.
func (s *AggregationService) Aggregate(ctx context.Context, sport string) (AggregateResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregationService.Aggregate")
	defer span.End()

	sport = NormalizeSport(sport)
	if sport == "" {
		return AggregateResult{}, fmt.Errorf("%w: sport is required", ErrInvalidInput)
	}
	if s.resolver == nil {
		return AggregateResult{}, fmt.Errorf("%w: team resolver is not configured", ErrDependencyUnavailable)
	}
	if !s.resolver.Supports(sport) {
		return AggregateResult{}, fmt.Errorf("%w: unsupported sport %q", ErrInvalidInput, sport)
	}
	span.SetAttributes(attribute.String("sport", sport))

	runID, err := s.ids.NewID()
	if err != nil {
		return AggregateResult{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := s.logger.With(logging.FieldRunID, runID, logging.FieldSport, sport)
	started := s.now()

	sources := s.registry.Sources(sport)
	active := make([]Source, 0, len(sources))
	activeIndex := make(map[int]int, len(sources))
	runs := make([]ProviderRun, len(sources))
	stats := AggregateStats{}
	for i, src := range sources {
		state, _ := s.tracker.State(src.ID())
		if err := s.gate.Allow(state.ConsecutiveFailures, state.LastCheckedAt); err != nil {
			logger.WarnContext(ctx, "skip provider with open circuit",
				logging.FieldProvider, src.ID(),
				"consecutive_failures", state.ConsecutiveFailures,
			)
			runs[i] = ProviderRun{ProviderID: src.ID(), Kind: src.Kind(), Skipped: true, Message: err.Error()}
			stats.ProvidersSkipped++
			continue
		}
		activeIndex[i] = len(active)
		active = append(active, src)
	}
	stats.ProvidersQueried = len(active)

	outcomes := s.fanOut(ctx, logger, sport, active)
	if err := ctx.Err(); err != nil {
		logger.InfoContext(ctx, "aggregate abandoned by caller", "error", err)
		return AggregateResult{}, fmt.Errorf("aggregate %s: %w", sport, err)
	}
	for i := range sources {
		if j, ok := activeIndex[i]; ok {
			runs[i] = outcomes[j].run
		}
	}

	var (
		games       []game.Record
		predictions []prediction.Record
		archive     []rawdata.Payload
	)
	for i, src := range active {
		out := outcomes[i]
		if out.err != nil {
			continue
		}
		stats.ProvidersSucceeded++

		kind := out.payload.Kind
		if kind == "" {
			kind = src.Kind()
		}
		switch kind {
		case PayloadSchedule:
			games = append(games, s.resolveGames(ctx, logger, src.ID(), sport, out.payload, &stats)...)
		case PayloadPredictions:
			predictions = append(predictions, s.resolvePredictions(ctx, logger, src.ID(), sport, out.payload, &stats)...)
		}
		archive = append(archive, archivePayloads(runID, src.ID(), sport, kind, out.payload.Raw)...)
	}
	stats.GamesSeen = len(games)

	merged, duplicates := prediction.MergeDuplicates(predictions)
	stats.DuplicatesMerged = duplicates
	surviving := prediction.FilterCompleted(merged, games)
	stats.CompletedFiltered = len(merged) - len(surviving)

	tiers, err := prediction.Classify(surviving)
	if err != nil {
		logger.ErrorContext(ctx, "classification contract violated", "error", err)
		return AggregateResult{}, fmt.Errorf("classify %s predictions: %w", sport, err)
	}

	s.archiveRaw(ctx, logger, archive)

	result := AggregateResult{
		RunID:        runID,
		Sport:        sport,
		GeneratedAt:  s.now().UTC(),
		Usable:       s.usable(sources),
		Predictions:  surviving,
		ByTier:       tiers,
		SourceStatus: s.tracker.Snapshot(),
		Providers:    runs,
		Stats:        stats,
	}
	if result.Predictions == nil {
		result.Predictions = []prediction.Record{}
	}

	s.metrics.recordTier(ctx, sport, string(prediction.TierTopPick), len(tiers.TopPicks))
	s.metrics.recordTier(ctx, sport, string(prediction.TierGoodValue), len(tiers.GoodValue))
	s.metrics.recordTier(ctx, sport, string(prediction.TierLean), len(tiers.Leans))
	s.metrics.recordTier(ctx, sport, string(prediction.TierRisky), len(tiers.Risky))

	logger.InfoContext(ctx, "aggregate completed",
		logging.FieldCount, len(result.Predictions),
		"providers_succeeded", stats.ProvidersSucceeded,
		"providers_queried", stats.ProvidersQueried,
		"unresolved_teams", stats.UnresolvedTeams,
		"completed_filtered", stats.CompletedFiltered,
		"usable", result.Usable,
		logging.FieldDurationMS, s.now().Sub(started).Milliseconds(),
	)
	return result, nil
}

// fanOut runs every source concurrently and waits no longer than the
// slowest source's timeout. Sources still running at that point are
// recorded as timed out and whatever they send later is dropped.
func (s *AggregationService) fanOut(ctx context.Context, logger *logging.Logger, sport string, sources []Source) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(sources))
	if len(sources) == 0 {
		return outcomes
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ceiling time.Duration
	for _, src := range sources {
		if timeout := s.timeoutFor(src); timeout > ceiling {
			ceiling = timeout
		}
	}

	pool, err := ants.NewPool(len(sources))
	if err != nil {
		for i, src := range sources {
			poolErr := NewProviderError(src.ID(), ProviderErrorNetwork, fmt.Errorf("create worker pool: %w", err))
			outcomes[i] = s.settle(ctx, logger, sport, src, fetchOutcome{index: i, err: poolErr})
		}
		return outcomes
	}
	defer pool.Release()

	results := make(chan fetchOutcome, len(sources))
	settled := make([]bool, len(sources))
	pending := 0
	for i, src := range sources {
		i, src := i, src
		timeout := s.timeoutFor(src)
		if err := pool.Submit(func() {
			fetchCtx, cancelFetch := context.WithTimeout(runCtx, timeout)
			defer cancelFetch()

			start := time.Now()
			payload, err := src.Fetch(fetchCtx, sport)
			results <- fetchOutcome{index: i, payload: payload, err: err, elapsed: time.Since(start)}
		}); err != nil {
			submitErr := NewProviderError(src.ID(), ProviderErrorNetwork, fmt.Errorf("submit fetch to worker pool: %w", err))
			outcomes[i] = s.settle(ctx, logger, sport, src, fetchOutcome{index: i, err: submitErr})
			settled[i] = true
			continue
		}
		pending++
	}

	timer := time.NewTimer(ceiling)
	defer timer.Stop()

collect:
	for pending > 0 {
		select {
		case res := <-results:
			pending--
			if res.err != nil && ctx.Err() != nil {
				// Failed because the caller gave up, not because the provider did.
				outcomes[res.index] = s.discard(logger, sources[res.index], res)
			} else {
				outcomes[res.index] = s.settle(ctx, logger, sport, sources[res.index], res)
			}
			settled[res.index] = true
		case <-timer.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}
	cancel()

	callerGone := ctx.Err() != nil
	for i, src := range sources {
		if settled[i] {
			continue
		}
		if callerGone {
			outcomes[i] = s.discard(logger, src, fetchOutcome{index: i, err: ctx.Err(), abandoned: true})
			continue
		}
		timeoutErr := NewProviderError(src.ID(), ProviderErrorTimeout, fmt.Errorf("no response within %s", ceiling))
		outcomes[i] = s.settle(ctx, logger, sport, src, fetchOutcome{index: i, err: timeoutErr, elapsed: ceiling, abandoned: true})
	}
	return outcomes
}

// discard closes out a fetch cut short by the caller's context. Only the
// ceiling timer turns a pending fetch into a recorded timeout, so nothing
// here reaches the tracker.
func (s *AggregationService) discard(logger *logging.Logger, src Source, res fetchOutcome) fetchOutcome {
	logger.Debug("provider fetch abandoned by caller", logging.FieldProvider, src.ID(), "error", res.err)
	res.abandoned = true
	res.run = ProviderRun{
		ProviderID: src.ID(),
		Kind:       src.Kind(),
		DurationMs: res.elapsed.Milliseconds(),
		Message:    "abandoned: " + res.err.Error(),
	}
	return res
}

// settle records one provider's result in the tracker and metrics.
func (s *AggregationService) settle(ctx context.Context, logger *logging.Logger, sport string, src Source, res fetchOutcome) fetchOutcome {
	run := ProviderRun{
		ProviderID: src.ID(),
		Kind:       src.Kind(),
		Outcome:    sourcehealth.OutcomeOK,
		DurationMs: res.elapsed.Milliseconds(),
	}

	if res.err != nil {
		kind := ProviderErrorKindOf(res.err)
		run.Outcome = kind.Outcome()
		run.ErrorKind = kind
		run.Message = res.err.Error()
		var providerErr *ProviderError
		if errors.As(res.err, &providerErr) && providerErr.RetryAfter > 0 {
			run.RetryAfterSeconds = int64(providerErr.RetryAfter / time.Second)
		}
		logger.WarnContext(ctx, "provider fetch failed",
			logging.FieldProvider, src.ID(),
			logging.FieldOutcome, string(run.Outcome),
			"error_kind", string(kind),
			"abandoned", res.abandoned,
			"error", res.err,
		)
	} else {
		run.Records = len(res.payload.Games) + len(res.payload.Predictions)
		logger.DebugContext(ctx, "provider fetch succeeded",
			logging.FieldProvider, src.ID(),
			logging.FieldCount, run.Records,
			logging.FieldDurationMS, run.DurationMs,
		)
	}

	s.tracker.RecordOutcome(src.ID(), run.Outcome)
	s.metrics.recordFetch(ctx, src.ID(), sport, string(run.Outcome), res.elapsed)
	res.run = run
	return res
}

func (s *AggregationService) timeoutFor(src Source) time.Duration {
	if timeout := src.Timeout(); timeout > 0 {
		return timeout
	}
	return s.cfg.DefaultTimeout
}

func (s *AggregationService) resolveTeam(providerID, sport string, format TeamFormat, raw string) (team.ID, error) {
	if format == TeamFormatName {
		return s.resolver.CanonicalizeFor(providerID, raw, sport)
	}
	return s.resolver.Resolve(providerID, raw, sport)
}

func (s *AggregationService) resolvePredictions(
	ctx context.Context,
	logger *logging.Logger,
	providerID string,
	sport string,
	payload SourcePayload,
	stats *AggregateStats,
) []prediction.Record {
	out := make([]prediction.Record, 0, len(payload.Predictions))
	for _, item := range payload.Predictions {
		teamID, err := s.resolveTeam(providerID, sport, payload.TeamFormat, item.Team)
		if err != nil {
			stats.UnresolvedTeams++
			logger.WarnContext(ctx, "drop prediction with unknown team",
				logging.FieldProvider, providerID,
				"team", item.Team,
				"player", item.Player,
			)
			continue
		}
		out = append(out, prediction.Record{
			Player:     item.Player,
			Team:       teamID,
			Sport:      sport,
			PropType:   item.PropType,
			Line:       item.Line,
			Direction:  item.Direction,
			Confidence: item.Confidence,
			Source:     providerID,
		})
	}
	return out
}

// resolveGames keeps a game as long as one side resolves, so a final game
// still filters predictions for the team that is known.
func (s *AggregationService) resolveGames(
	ctx context.Context,
	logger *logging.Logger,
	providerID string,
	sport string,
	payload SourcePayload,
	stats *AggregateStats,
) []game.Record {
	out := make([]game.Record, 0, len(payload.Games))
	for _, item := range payload.Games {
		home, homeErr := s.resolveTeam(providerID, sport, payload.TeamFormat, item.HomeTeam)
		away, awayErr := s.resolveTeam(providerID, sport, payload.TeamFormat, item.AwayTeam)
		for _, err := range []error{homeErr, awayErr} {
			if err == nil {
				continue
			}
			stats.UnresolvedTeams++
			logger.WarnContext(ctx, "game has unknown team",
				logging.FieldProvider, providerID,
				"game_id", item.ExternalID,
				"error", err,
			)
		}
		if home == "" && away == "" {
			continue
		}
		out = append(out, game.Record{
			GameID:    item.ExternalID,
			Sport:     sport,
			HomeTeam:  home,
			AwayTeam:  away,
			HomeScore: item.HomeScore,
			AwayScore: item.AwayScore,
			Status:    item.Status,
			StartTime: item.StartTime,
		})
	}
	return out
}

// usable reports whether some prediction source for the sport last
// answered successfully.
func (s *AggregationService) usable(sources []Source) bool {
	for _, src := range sources {
		if src.Kind() != PayloadPredictions {
			continue
		}
		if state, ok := s.tracker.State(src.ID()); ok && state.LastOutcome == sourcehealth.OutcomeOK {
			return true
		}
	}
	return false
}

func archivePayloads(runID, providerID, sport string, kind PayloadKind, raw []RawPayload) []rawdata.Payload {
	out := make([]rawdata.Payload, 0, len(raw))
	for _, item := range raw {
		if len(item.Body) == 0 {
			continue
		}
		out = append(out, rawdata.Payload{
			RunID:       runID,
			ProviderID:  providerID,
			Sport:       sport,
			Kind:        string(kind),
			SourceURL:   item.URL,
			PayloadJSON: string(item.Body),
			PayloadHash: rawdata.Hash(item.Body),
			FetchedAt:   item.FetchedAt,
		})
	}
	return out
}

func (s *AggregationService) archiveRaw(ctx context.Context, logger *logging.Logger, items []rawdata.Payload) {
	if s.archive == nil || len(items) == 0 {
		return
	}
	if err := s.archive.UpsertMany(ctx, items); err != nil {
		logger.WarnContext(ctx, "archive raw payloads failed", logging.FieldCount, len(items), "error", err)
	}
}

// AggregateSports aggregates several sports concurrently. Results follow the
// order of the deduplicated input; the first error in that order is returned.
func (s *AggregationService) AggregateSports(ctx context.Context, sports []string) ([]AggregateResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AggregationService.AggregateSports")
	defer span.End()

	unique := make([]string, 0, len(sports))
	seen := make(map[string]struct{}, len(sports))
	for _, raw := range sports {
		sport := NormalizeSport(raw)
		if sport == "" {
			continue
		}
		if _, ok := seen[sport]; ok {
			continue
		}
		seen[sport] = struct{}{}
		unique = append(unique, sport)
	}
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: at least one sport is required", ErrInvalidInput)
	}

	type sportResult struct {
		result AggregateResult
		err    error
	}
	rows := iter.Map(unique, func(sport *string) sportResult {
		result, err := s.Aggregate(ctx, *sport)
		return sportResult{result: result, err: err}
	})

	out := make([]AggregateResult, 0, len(rows))
	for _, row := range rows {
		if row.err != nil {
			return nil, row.err
		}
		out = append(out, row.result)
	}
	return out, nil
}

// SourceHealth lists every registered or previously seen provider with its
// circuit state.
func (s *AggregationService) SourceHealth() HealthReport {
	states := s.tracker.States()
	registered := make(map[string]struct{})
	for _, providerID := range s.registry.ProviderIDs() {
		registered[providerID] = struct{}{}
	}

	report := HealthReport{
		Snapshot:  s.tracker.Snapshot(),
		Providers: make([]ProviderHealth, 0, len(states)+len(registered)),
	}
	known := make(map[string]struct{}, len(states))
	for _, state := range states {
		known[state.ProviderID] = struct{}{}
		_, isRegistered := registered[state.ProviderID]
		report.Providers = append(report.Providers, ProviderHealth{
			ProviderState: state,
			Circuit:       s.gate.State(state.ConsecutiveFailures, state.LastCheckedAt),
			Registered:    isRegistered,
		})
	}
	for _, providerID := range s.registry.ProviderIDs() {
		if _, ok := known[providerID]; ok {
			continue
		}
		report.Providers = append(report.Providers, ProviderHealth{
			ProviderState: sourcehealth.ProviderState{ProviderID: providerID},
			Circuit:       resilience.CircuitStateClosed,
			Registered:    true,
		})
	}
	sort.Slice(report.Providers, func(i, j int) bool {
		return report.Providers[i].ProviderID < report.Providers[j].ProviderID
	})
	return report
}
