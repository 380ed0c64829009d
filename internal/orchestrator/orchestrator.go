// Package orchestrator drives one end-to-end analysis run: enumerate files,
// partition them against the content cache, dispatch the misses to
// analyzers with bounded parallelism, and assemble the final report.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wardenscan/warden/internal/analyzer"
	"github.com/wardenscan/warden/internal/cache"
	"github.com/wardenscan/warden/internal/config"
	"github.com/wardenscan/warden/internal/dispatch"
	"github.com/wardenscan/warden/internal/engerrs"
	"github.com/wardenscan/warden/internal/finding"
	"github.com/wardenscan/warden/internal/hashutil"
	"github.com/wardenscan/warden/internal/validation"
	"github.com/wardenscan/warden/internal/walk"
)

// ToolVersion is stamped into every report's metadata. Set at build time in
// production; a constant here for tests and the dev build.
var ToolVersion = "dev"

// Orchestrator owns one run's collaborators: the registry of analyzers,
// the content cache shared across runs, the dispatcher, and the optional
// validation pipeline.
type Orchestrator struct {
	registry   *analyzer.Registry
	cache      *cache.Cache
	dispatcher *dispatch.Dispatcher
	validator  *validation.Pipeline
	logger     *slog.Logger
}

// New builds an Orchestrator. validator may be nil, which disables the
// validation pipeline stage regardless of cfg.Validation.Enabled.
func New(reg *analyzer.Registry, c *cache.Cache, validator *validation.Pipeline, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	d := dispatch.New(dispatch.Options{
		StreamingThreshold:  cfg.General.StreamingThresholdBytes,
		MaxAnalysisDuration: cfg.General.MaxAnalysisDuration,
	}, logger)

	return &Orchestrator{
		registry:   reg,
		cache:      c,
		dispatcher: d,
		validator:  validator,
		logger:     logger,
	}
}

// workerCount returns min(configured, 0.75 * NumCPU), the same fraction the
// teacher's pipeline uses to leave headroom for the OS and GC.
func workerCount(configured int) int {
	budget := int(float64(runtime.NumCPU()) * 0.75)
	if budget < 1 {
		budget = 1
	}

	if configured <= 0 {
		return budget
	}

	if configured < budget {
		return configured
	}

	return budget
}

// Run executes one complete analysis over cfg.General.Paths. The returned
// report is always non-nil, even when ctx is canceled partway through — in
// that case Summary.Interrupted is true and Findings reflects whatever
// completed before cancellation. A non-nil error wraps engerrs.ErrCachePersistFailed
// when the completed report could not be cached for next run; callers should
// still use the returned report and treat the error as a distinct exit
// condition rather than a failed scan.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.Config) (*finding.Report, error) {
	start := time.Now()

	configHash := cfg.Hash()
	report := finding.NewReport(configHash)

	w := walk.New(walk.Options{
		ExcludePatterns:   cfg.General.ExcludePatterns,
		IncludeExtensions: cfg.General.IncludeExtensions,
		MaxFileSizeBytes:  cfg.General.MaxFileSizeBytes,
		FollowSymlinks:    cfg.General.FollowSymlinks,
	}, o.logger)

	paths := w.Walk(cfg.General.Paths)
	report.SetFilesScanned(len(paths))

	findings, interrupted := o.analyzeAll(ctx, cfg, configHash, paths)

	if o.validator != nil && cfg.Validation.Enabled {
		findings = o.validator.Run(ctx, findings)
	}

	report.Findings = findings
	report.Finalize(time.Since(start), interrupted, ToolVersion)

	if cfg.Cache.Enabled && cfg.Cache.Path != "" {
		if err := o.cache.Persist(cfg.Cache.Path); err != nil {
			o.logger.Warn("cache persist failed", "error", err)

			return report, fmt.Errorf("%w: %v", engerrs.ErrCachePersistFailed, err)
		}
	}

	return report, nil
}

// analyzeAll partitions paths into cache hits and misses, analyzes the
// misses with bounded parallelism, and returns the combined findings plus
// whether ctx was canceled before every miss completed.
func (o *Orchestrator) analyzeAll(ctx context.Context, cfg *config.Config, configHash string, paths []string) ([]finding.Finding, bool) {
	type outcome struct {
		findings []finding.Finding
	}

	outcomes := make([]outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(cfg.General.MaxWorkers))

	for i, p := range paths {
		i, p := i, p

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			outcomes[i] = outcome{findings: o.analyzeOne(p, cfg, configHash)}

			return nil
		})
	}

	err := g.Wait()
	interrupted := err != nil && ctx.Err() != nil

	var all []finding.Finding
	for _, out := range outcomes {
		all = append(all, out.findings...)
	}

	return all, interrupted
}

// analyzeOne handles one file's cache lookup, dispatch, and cache insert.
func (o *Orchestrator) analyzeOne(path string, cfg *config.Config, configHash string) []finding.Finding {
	applicable := o.registry.Applicable(path)
	if len(applicable) == 0 {
		return nil
	}

	contentHash, err := hashutil.ContentHashFile(path)
	if err != nil {
		return []finding.Finding{
			finding.New("engine", "file-unavailable", finding.SeverityInfo, path, 0,
				fmt.Sprintf("could not hash file content: %v", err)),
		}
	}

	if cfg.Cache.Enabled {
		if cached, hit := o.cache.Lookup(contentHash, configHash); hit {
			return cached
		}
	}

	findings := o.dispatcher.AnalyzeFile(path, applicable)

	if cfg.Cache.Enabled {
		o.cache.Insert(contentHash, configHash, findings)
	}

	return findings
}
