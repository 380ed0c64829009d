package validation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/wardenscan/warden/internal/engerrs"
	"github.com/wardenscan/warden/internal/finding"
)

// Thresholds configures the outcome policy. Must satisfy
// Dismiss < Review < Accept.
type Thresholds struct {
	Accept  float64
	Review  float64
	Dismiss float64
}

// DefaultThresholds matches spec.md's documented defaults.
var DefaultThresholds = Thresholds{Accept: 0.8, Review: 0.5, Dismiss: 0.2}

// baselineConfidence is the starting point every finding's confidence is
// computed relative to; layers contribute signed deltas on top of it.
const baselineConfidence = 0.5

// ReviewSubmitter is the subset of the review queue the pipeline depends
// on, kept narrow so the pipeline can be tested without a real queue.
type ReviewSubmitter interface {
	Submit(findings []finding.Finding) []string
}

// Pipeline runs every registered Layer over each finding in order, then
// applies the outcome policy.
type Pipeline struct {
	layers       []Layer
	thresholds   Thresholds
	maxDuration  time.Duration
	reviewQueue  ReviewSubmitter
	logger       *slog.Logger

	mu      sync.Mutex
	history map[string]int
}

// New builds a Pipeline with the given layers, run in order. reviewQueue may
// be nil, in which case RequiresReview findings are dropped from the report
// with a logged warning instead of being submitted anywhere.
func New(layers []Layer, thresholds Thresholds, maxDuration time.Duration, reviewQueue ReviewSubmitter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		layers:      layers,
		thresholds:  thresholds,
		maxDuration: maxDuration,
		reviewQueue: reviewQueue,
		logger:      logger,
		history:     make(map[string]int),
	}
}

// NewDefault wires the four layers described in the engine's validation
// design in order: cross-reference, pattern-match, confidence scorer,
// and the baseline-driven severity demotion performed at the end of
// runLayers. knownSafePaths seeds the cross-reference layer's bloom filter.
func NewDefault(knownSafePaths []string, thresholds Thresholds, maxDuration time.Duration, reviewQueue ReviewSubmitter, logger *slog.Logger) (*Pipeline, *ConfidenceScorer) {
	scorer := NewConfidenceScorer(0.3)

	layers := []Layer{
		NewCrossReferenceLayer(knownSafePaths),
		NewPatternMatchLayer(),
		scorer,
	}

	return New(layers, thresholds, maxDuration, reviewQueue, logger), scorer
}

// Run validates every finding and returns the subset that belongs in the
// final report: Validated, Enhanced, and Failed findings. Dismissed
// findings are dropped; RequiresReview findings are submitted to the review
// queue (if any) and likewise excluded from the returned slice, per S5.
func (p *Pipeline) Run(ctx context.Context, findings []finding.Finding) []finding.Finding {
	var accepted, forReview []finding.Finding

	for _, f := range findings {
		select {
		case <-ctx.Done():
			accepted = append(accepted, f)

			continue
		default:
		}

		result := p.validateOne(f)

		switch result.Status {
		case StatusValidated, StatusEnhanced, StatusFailed:
			accepted = append(accepted, result.Finding)
		case StatusRequiresReview:
			forReview = append(forReview, result.Finding)
		case StatusDismissed:
			p.logger.Debug("finding dismissed", "id", f.ID, "analyzer", f.Analyzer)
		}
	}

	if len(forReview) > 0 {
		if p.reviewQueue != nil {
			p.reviewQueue.Submit(forReview)
		} else {
			p.logger.Warn("findings require review but no review queue is configured", "count", len(forReview))
		}
	}

	return accepted
}

// validateOne runs f through every layer, accumulating confidence, then
// applies the outcome policy and (when confidence < 0.5) the severity
// demotion.
func (p *Pipeline) validateOne(f finding.Finding) Result {
	start := time.Now()

	done := make(chan Result, 1)

	go func() {
		done <- p.runLayers(f)
	}()

	if p.maxDuration <= 0 {
		result := <-done
		result.ValidationTimeMS = time.Since(start).Milliseconds()

		return result
	}

	select {
	case result := <-done:
		result.ValidationTimeMS = time.Since(start).Milliseconds()

		return result
	case <-time.After(p.maxDuration):
		return Result{
			Finding:          appendNote(f, fmt.Sprintf("%v: validation exceeded %s", engerrs.ErrValidationTimeout, p.maxDuration)),
			Status:           StatusFailed,
			ValidationTimeMS: time.Since(start).Milliseconds(),
		}
	}
}

func (p *Pipeline) runLayers(f finding.Finding) Result {
	ctx := &Context{Path: f.File, ReadFile: os.ReadFile, History: p.snapshotHistory()}

	confidence := baselineConfidence
	current := f
	layersApplied := 0

	for _, layer := range p.layers {
		delta, rewrite, shortCircuit, err := layer.Apply(current, ctx)
		if err != nil {
			return Result{
				Finding: appendNote(current, fmt.Sprintf("%v: layer %q: %v", engerrs.ErrLayerFailed, layer.Name(), err)),
				Status:  StatusFailed,
			}
		}

		layersApplied++
		confidence = clampConfidence(confidence + delta)

		if rewrite != nil {
			current = *rewrite
		}

		if shortCircuit != nil {
			return Result{Finding: current, Status: *shortCircuit, Confidence: confidence, LayersApplied: layersApplied}
		}
	}

	enhanced := !current.Equal(f)

	demoted := false
	if confidence < 0.5 {
		demotedSeverity := current.Severity.Demote()
		if demotedSeverity != current.Severity {
			demoted = true
		}

		current = current.WithSeverity(demotedSeverity)
		current = current.WithDescription(appendNoteText(current.Description, formatConfidenceNote(confidence)))
	}

	p.recordHistory(f.Analyzer)

	status := p.classify(confidence, enhanced || demoted)

	return Result{Finding: current, Status: status, Confidence: confidence, LayersApplied: layersApplied}
}

func (p *Pipeline) classify(confidence float64, rewritten bool) Status {
	switch {
	case confidence >= p.thresholds.Accept:
		if rewritten {
			return StatusEnhanced
		}

		return StatusValidated
	case confidence >= p.thresholds.Review:
		return StatusRequiresReview
	case confidence < p.thresholds.Dismiss:
		return StatusDismissed
	default:
		// Between dismiss and review thresholds with no layer opinion:
		// treat as requiring a human look rather than silently accepting.
		return StatusRequiresReview
	}
}

func (p *Pipeline) recordHistory(analyzerName string) {
	p.mu.Lock()
	p.history[analyzerName]++
	p.mu.Unlock()
}

func (p *Pipeline) snapshotHistory() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]int, len(p.history))
	for k, v := range p.history {
		out[k] = v
	}

	return out
}

func appendNote(f finding.Finding, note string) finding.Finding {
	return f.WithDescription(appendNoteText(f.Description, note))
}

func appendNoteText(description, note string) string {
	if description == "" {
		return note
	}

	return description + " | " + note
}
