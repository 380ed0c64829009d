package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFilesScanned      = "warden.scan.files_scanned"
	metricFindingsTotal     = "warden.scan.findings_total"
	metricScanDuration      = "warden.scan.duration.seconds"
	metricAnalyzerDuration  = "warden.analyzer.duration.seconds"
	metricCacheHitsTotal    = "warden.cache.hits_total"
	metricCacheMissesTotal  = "warden.cache.misses_total"
	metricValidationOutcome = "warden.validation.outcome_total"

	attrAnalyzer = "analyzer"
	attrSeverity = "severity"
	attrOutcome  = "outcome"
)

// durationBucketBoundaries covers 1ms to 300s, spanning a single small-file
// analyzer call up to a full multi-directory scan.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300}

// ScanMetrics holds the OTel instruments recorded over the life of one scan
// engine invocation.
type ScanMetrics struct {
	filesScanned      metric.Int64Counter
	findingsTotal     metric.Int64Counter
	scanDuration      metric.Float64Histogram
	analyzerDuration  metric.Float64Histogram
	cacheHits         metric.Int64Counter
	cacheMisses       metric.Int64Counter
	validationOutcome metric.Int64Counter
}

// NewScanMetrics creates the scan engine's metric instruments from mt.
func NewScanMetrics(mt metric.Meter) (*ScanMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &ScanMetrics{
		filesScanned:      b.counter(metricFilesScanned, "Total files scanned", "{file}"),
		findingsTotal:     b.counter(metricFindingsTotal, "Total findings emitted, by analyzer and severity", "{finding}"),
		scanDuration:      b.histogram(metricScanDuration, "Total scan duration in seconds", "s", durationBucketBoundaries...),
		analyzerDuration:  b.histogram(metricAnalyzerDuration, "Per-analyzer invocation duration in seconds", "s", durationBucketBoundaries...),
		cacheHits:         b.counter(metricCacheHitsTotal, "Content-addressed cache hits", "{hit}"),
		cacheMisses:       b.counter(metricCacheMissesTotal, "Content-addressed cache misses", "{miss}"),
		validationOutcome: b.counter(metricValidationOutcome, "Validation pipeline outcomes, by status", "{finding}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordScan records the outcome of one full engine run. Safe on a nil
// receiver so callers don't need to special-case telemetry being disabled.
func (sm *ScanMetrics) RecordScan(ctx context.Context, filesScanned int, duration time.Duration) {
	if sm == nil {
		return
	}

	sm.filesScanned.Add(ctx, int64(filesScanned))
	sm.scanDuration.Record(ctx, duration.Seconds())
}

// RecordAnalyzer records one analyzer invocation's duration and the
// severity breakdown of the findings it produced.
func (sm *ScanMetrics) RecordAnalyzer(ctx context.Context, analyzer string, duration time.Duration, findingsBySeverity map[string]int) {
	if sm == nil {
		return
	}

	sm.analyzerDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrAnalyzer, analyzer)))

	for severity, count := range findingsBySeverity {
		sm.findingsTotal.Add(ctx, int64(count), metric.WithAttributes(
			attribute.String(attrAnalyzer, analyzer),
			attribute.String(attrSeverity, severity),
		))
	}
}

// RecordCacheLookup records a single cache lookup outcome.
func (sm *ScanMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if sm == nil {
		return
	}

	if hit {
		sm.cacheHits.Add(ctx, 1)

		return
	}

	sm.cacheMisses.Add(ctx, 1)
}

// RecordValidationOutcome records one finding's terminal validation status.
func (sm *ScanMetrics) RecordValidationOutcome(ctx context.Context, status string) {
	if sm == nil {
		return
	}

	sm.validationOutcome.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, status)))
}
