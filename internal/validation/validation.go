// Package validation implements the multi-layer confidence-scoring pipeline
// that classifies raw analyzer findings into accepted, reviewed, dismissed,
// or failed outcomes.
package validation

import (
	"fmt"

	"github.com/wardenscan/warden/internal/finding"
)

// Status is the outcome a Result settles into.
type Status int

const (
	StatusValidated Status = iota
	StatusEnhanced
	StatusDismissed
	StatusRequiresReview
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusValidated:
		return "validated"
	case StatusEnhanced:
		return "enhanced"
	case StatusDismissed:
		return "dismissed"
	case StatusRequiresReview:
		return "requires_review"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is one finding's verdict after running through every layer.
type Result struct {
	Finding           finding.Finding
	Status            Status
	Confidence        float64
	LayersApplied     int
	ValidationTimeMS  int64
}

// Context is passed to every layer. ReadFile lets the pattern-match layer
// re-read the file the finding was reported against; it may be nil in
// tests that don't exercise that layer.
type Context struct {
	Path      string
	ProjectType string
	History   map[string]int // Per-run tally of outcomes seen per analyzer, for telemetry.
	ReadFile  func(path string) ([]byte, error)
}

// Layer is one composable step in the pipeline. It returns the confidence
// delta to apply, an optional rewritten finding (signals Enhanced), and an
// optional short-circuit status that ends the pipeline early (e.g. a
// cross-reference hit that dismisses immediately).
type Layer interface {
	Name() string
	Apply(f finding.Finding, ctx *Context) (confidenceDelta float64, rewrite *finding.Finding, shortCircuit *Status, err error)
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// formatConfidenceNote renders the suffix appended to a demoted finding's
// description, e.g. "Confidence: 30%".
func formatConfidenceNote(confidence float64) string {
	return fmt.Sprintf("Confidence: %d%%", int(confidence*100+0.5))
}
