// Package telemetry provides OpenTelemetry-based metrics and a Prometheus
// scrape endpoint for the scan engine.
package telemetry

import (
	"log/slog"
	"os"
)

const (
	defaultServiceName = "warden"
)

// Config controls how telemetry is wired for one process invocation.
type Config struct {
	// ServiceName names the OTel meter the instruments are created on.
	ServiceName string
	// ServiceVersion is the running binary's version string.
	ServiceVersion string
	// MetricsAddr, if non-empty, starts a Prometheus scrape server on this
	// address (e.g. ":9090"). Empty disables the server.
	MetricsAddr string
	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level
	// LogJSON selects JSON-formatted log output over text.
	LogJSON bool
}

// DefaultConfig returns a Config with sensible defaults for zero-config
// startup.
func DefaultConfig() Config {
	return Config{
		ServiceName: defaultServiceName,
		LogLevel:    slog.LevelInfo,
	}
}

// NewLogger builds the process-wide structured logger per cfg.
func NewLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
