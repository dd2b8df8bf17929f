package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riskibarqy/propboard/internal/config"
	"github.com/riskibarqy/propboard/internal/platform/logging"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics is the scrape handler plus the provider shutdown hook. Handler is
// nil when Prometheus export is disabled.
type Metrics struct {
	Handler  http.Handler
	Shutdown func(context.Context) error
}

// InitPrometheus installs an OTel meter provider backed by a private
// Prometheus registry and makes it the global provider, so instruments
// created through otel.Meter are exported on the returned handler. It runs
// after InitUptrace and therefore owns metrics when both are enabled.
func InitPrometheus(cfg config.Config, logger *logging.Logger) (Metrics, error) {
	if logger == nil {
		logger = logging.Default()
	}

	noop := Metrics{Shutdown: func(context.Context) error { return nil }}
	if !cfg.PrometheusEnabled {
		logger.Info("prometheus disabled", "reason", "PROMETHEUS_ENABLED=false")
		return noop, nil
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return noop, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	logger.Info("prometheus enabled", "path", "/metrics")

	return Metrics{
		Handler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Shutdown: provider.Shutdown,
	}, nil
}
