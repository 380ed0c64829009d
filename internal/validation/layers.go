package validation

import (
	"bytes"
	"strings"
	"sync"

	"github.com/wardenscan/warden/internal/finding"
	"github.com/wardenscan/warden/pkg/alg/bloom"
	"github.com/wardenscan/warden/pkg/alg/stats"
)

// safePathMarkers are substrings that mark a path as conventionally
// low-risk — test fixtures and vendored code are the two the teacher's own
// analyzers treat as noisy-but-expected.
var safePathMarkers = []string{
	"_test.go", "/testdata/", "/vendor/", "/node_modules/", "/.git/",
}

// CrossReferenceLayer dismisses findings whose path matches a known-safe
// pattern before any further, more expensive validation runs. It always
// checks the built-in marker list and, when the caller supplies a known-safe
// path set, also tests the path against a bloom filter seeded with it.
type CrossReferenceLayer struct {
	filter *bloom.Filter
}

// NewCrossReferenceLayer builds a layer. knownSafePaths seeds the bloom
// filter; pass nil to rely solely on safePathMarkers.
func NewCrossReferenceLayer(knownSafePaths []string) *CrossReferenceLayer {
	l := &CrossReferenceLayer{}

	if len(knownSafePaths) == 0 {
		return l
	}

	f, err := bloom.NewWithEstimates(uint(len(knownSafePaths)), 0.01)
	if err != nil {
		return l
	}

	for _, p := range knownSafePaths {
		f.Add([]byte(p))
	}

	l.filter = f

	return l
}

func (l *CrossReferenceLayer) Name() string { return "cross-reference" }

func (l *CrossReferenceLayer) Apply(f finding.Finding, _ *Context) (float64, *finding.Finding, *Status, error) {
	for _, marker := range safePathMarkers {
		if strings.Contains(f.File, marker) {
			dismissed := StatusDismissed

			return -1, nil, &dismissed, nil
		}
	}

	if l.filter != nil && l.filter.Test([]byte(f.File)) {
		dismissed := StatusDismissed

		return -1, nil, &dismissed, nil
	}

	return 0, nil, nil, nil
}

// PatternMatchLayer checks that a finding's reported line still exists in
// the file — the file may have changed between analysis and validation in a
// long-running watch session. The line's content is not compared.
type PatternMatchLayer struct{}

func NewPatternMatchLayer() *PatternMatchLayer { return &PatternMatchLayer{} }

func (l *PatternMatchLayer) Name() string { return "pattern-match" }

func (l *PatternMatchLayer) Apply(f finding.Finding, ctx *Context) (float64, *finding.Finding, *Status, error) {
	if ctx == nil || ctx.ReadFile == nil || f.Line <= 0 {
		return 0, nil, nil, nil
	}

	content, err := ctx.ReadFile(f.File)
	if err != nil {
		// The file may legitimately be gone by validation time; don't fail
		// the pipeline over it, just withhold the confidence boost.
		return 0, nil, nil, nil
	}

	lines := bytes.Split(content, []byte("\n"))
	if f.Line > len(lines) {
		return -0.2, nil, nil, nil
	}

	return 0.1, nil, nil, nil
}

// ConfidenceScorer assigns a numeric confidence using a per-category EMA
// baseline, updated out-of-band via UpdateBaseline as reviewers confirm or
// refute findings over time.
type ConfidenceScorer struct {
	mu        sync.Mutex
	baselines map[string]*stats.EMA
	alpha     float64
}

// NewConfidenceScorer creates a scorer with fresh, empty baselines.
func NewConfidenceScorer(alpha float64) *ConfidenceScorer {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}

	return &ConfidenceScorer{baselines: make(map[string]*stats.EMA), alpha: alpha}
}

func (c *ConfidenceScorer) Name() string { return "confidence-scorer" }

// category groups findings the way baselines are tracked: by analyzer, the
// coarsest unit a reviewer's feedback generalizes to.
func category(f finding.Finding) string {
	return f.Analyzer
}

// defaultConfidenceByCategory is the prior used the first time a category is
// seen, before any baseline has been learned.
const defaultConfidenceByCategory = 0.6

func (c *ConfidenceScorer) Apply(f finding.Finding, _ *Context) (float64, *finding.Finding, *Status, error) {
	cat := category(f)

	c.mu.Lock()
	ema, ok := c.baselines[cat]
	if !ok {
		ema = stats.NewEMA(c.alpha)
		c.baselines[cat] = ema
	}
	c.mu.Unlock()

	if !ema.Initialized() {
		return defaultConfidenceByCategory - 0.5, nil, nil, nil // scorer output is a delta on top of the 0.5 starting point
	}

	return ema.Value() - 0.5, nil, nil, nil
}

// UpdateBaseline feeds a reviewer-observed accuracy (1.0 = confirmed true
// positive, 0.0 = false positive) into category's running baseline.
func (c *ConfidenceScorer) UpdateBaseline(category string, accuracy float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ema, ok := c.baselines[category]
	if !ok {
		ema = stats.NewEMA(c.alpha)
		c.baselines[category] = ema
	}

	ema.Update(accuracy)
}

