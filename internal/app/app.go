package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/propboard/internal/config"
	"github.com/riskibarqy/propboard/internal/domain/rawdata"
	"github.com/riskibarqy/propboard/internal/domain/sourcehealth"
	"github.com/riskibarqy/propboard/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/propboard/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/propboard/internal/interfaces/httpapi"
	"github.com/riskibarqy/propboard/internal/platform/id"
	"github.com/riskibarqy/propboard/internal/platform/logging"
	"github.com/riskibarqy/propboard/internal/platform/resilience"
	"github.com/riskibarqy/propboard/internal/usecase"
)

// Engine is the aggregation service plus the resources it owns.
type Engine struct {
	Service *usecase.AggregationService
	db      *sqlx.DB
}

func (e *Engine) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

// NewEngine builds the provider registry, resolver, tracker and archive from
// cfg. The tracker is created here and lives as long as the engine.
func NewEngine(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.Default()
	}

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	resolver, err := LoadResolver(cfg)
	if err != nil {
		return nil, err
	}

	engine := &Engine{}
	var archive rawdata.Repository = memory.NewRawDataRepository(cfg.ArchiveMaxPerStream)
	if cfg.ArchiveEnabled {
		db, err := openDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		engine.db = db
		archive = postgres.NewRawDataRepository(db)
	}

	engine.Service = usecase.NewAggregationService(
		registry,
		resolver,
		sourcehealth.NewTracker(),
		archive,
		id.NewUUIDGenerator(),
		usecase.AggregationConfig{
			DefaultTimeout: cfg.ProviderTimeout,
			CircuitBreaker: resilience.CircuitBreakerConfig{
				Enabled:          cfg.ProviderCircuitEnabled,
				FailureThreshold: cfg.ProviderCircuitFailures,
				OpenTimeout:      cfg.ProviderCircuitOpenTimeout,
			},
		},
		logger,
	)
	return engine, nil
}

func NewHTTPServer(cfg config.Config, service httpapi.Aggregator, metrics http.Handler, logger *logging.Logger) (*http.Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(service, logger)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     metrics,
	})

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, nil
}
