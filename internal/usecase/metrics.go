package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "propboard/internal/usecase"

type aggregationMetrics struct {
	fetches       metric.Int64Counter
	fetchDuration metric.Float64Histogram
	predictions   metric.Int64Counter
}

func newAggregationMetrics() *aggregationMetrics {
	meter := otel.Meter(meterName)
	fallback := noop.NewMeterProvider().Meter(meterName)

	fetches, err := meter.Int64Counter("provider_fetch_total",
		metric.WithDescription("Provider fetches by outcome."))
	if err != nil {
		fetches, _ = fallback.Int64Counter("provider_fetch_total")
	}
	fetchDuration, err := meter.Float64Histogram("provider_fetch_duration_ms",
		metric.WithDescription("Provider fetch latency."),
		metric.WithUnit("ms"))
	if err != nil {
		fetchDuration, _ = fallback.Float64Histogram("provider_fetch_duration_ms")
	}
	predictions, err := meter.Int64Counter("aggregate_predictions_total",
		metric.WithDescription("Predictions published by tier."))
	if err != nil {
		predictions, _ = fallback.Int64Counter("aggregate_predictions_total")
	}

	return &aggregationMetrics{
		fetches:       fetches,
		fetchDuration: fetchDuration,
		predictions:   predictions,
	}
}

func (m *aggregationMetrics) recordFetch(ctx context.Context, providerID, sport, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", providerID),
		attribute.String("sport", sport),
		attribute.String("outcome", outcome),
	)
	m.fetches.Add(ctx, 1, attrs)
	m.fetchDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

func (m *aggregationMetrics) recordTier(ctx context.Context, sport, tier string, count int) {
	if count == 0 {
		return
	}
	m.predictions.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("sport", sport),
		attribute.String("tier", tier),
	))
}
