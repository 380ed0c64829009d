package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const metricsReadHeaderTimeout = 5 * time.Second

// Providers holds the process-wide telemetry handles a command wires into
// its dependencies and shuts down on exit.
type Providers struct {
	Meter   metric.Meter
	Metrics *ScanMetrics

	server *http.Server
}

// Init builds a MeterProvider backed by a Prometheus registry and, if
// cfg.MetricsAddr is set, starts an HTTP server serving /metrics.
func Init(cfg Config) (Providers, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return Providers{}, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(cfg.ServiceName)

	metrics, err := NewScanMetrics(meter)
	if err != nil {
		return Providers{}, fmt.Errorf("create scan metrics: %w", err)
	}

	providers := Providers{Meter: meter, Metrics: metrics}

	if cfg.MetricsAddr == "" {
		return providers, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	providers.server = &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		if err := providers.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = err // best-effort background server; the caller has no channel to report on
		}
	}()

	return providers, nil
}

// Shutdown stops the metrics HTTP server, if one was started. Safe to call
// on a zero-value Providers.
func (p Providers) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}

	return p.server.Shutdown(ctx)
}
