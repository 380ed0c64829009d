package analyzer

import (
	"fmt"
	"sync"

	"github.com/wardenscan/warden/internal/engerrs"
	"github.com/wardenscan/warden/internal/finding"
)

// entry pairs an analyzer with its derived capability flags, computed once
// at registration time rather than re-probed on every call.
type entry struct {
	analyzer   Analyzer
	streaming  bool
	concurrent bool
	mu         *sync.Mutex // non-nil only when !concurrent
}

// Registry holds a set of named analyzers and answers "which analyzers
// apply to file F?". Registration happens once at startup; lookups are
// read-only afterward, so Registry needs no locking of its own.
type Registry struct {
	byName map[string]*entry
	order  []string // Registration order, for deterministic enumeration.
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*entry)}
}

// Register adds an analyzer. Returns ErrAnalyzerNameConflict if an analyzer
// with the same name is already registered.
func (r *Registry) Register(a Analyzer) error {
	name := a.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", engerrs.ErrAnalyzerNameConflict, name)
	}

	e := &entry{
		analyzer:   a,
		streaming:  supportsStreaming(a),
		concurrent: isConcurrencySafe(a),
	}
	if !e.concurrent {
		e.mu = &sync.Mutex{}
	}

	r.byName[name] = e
	r.order = append(r.order, name)

	return nil
}

// Names returns registered analyzer names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)

	return out
}

// Applicable returns the analyzers whose Supports(path) is true, in
// registration order.
func (r *Registry) Applicable(path string) []BoundAnalyzer {
	var out []BoundAnalyzer

	for _, name := range r.order {
		e := r.byName[name]
		if e.analyzer.Supports(path) {
			out = append(out, BoundAnalyzer{entry: e})
		}
	}

	return out
}

// BoundAnalyzer is a handle to a registered analyzer that serializes calls
// through the registry's per-analyzer lock when the analyzer isn't declared
// concurrency-safe. The dispatcher calls Analyze through this handle instead
// of the raw Analyzer so callers never have to think about locking.
type BoundAnalyzer struct {
	entry *entry
}

// Name returns the wrapped analyzer's name.
func (b BoundAnalyzer) Name() string {
	return b.entry.analyzer.Name()
}

// SupportsStreaming reports whether the wrapped analyzer can be invoked
// line-at-a-time.
func (b BoundAnalyzer) SupportsStreaming() bool {
	return b.entry.streaming
}

// Analyze invokes the wrapped analyzer, taking its lock first if it isn't
// concurrency-safe.
func (b BoundAnalyzer) Analyze(path string, content []byte, line int) ([]finding.Finding, error) {
	if b.entry.mu != nil {
		b.entry.mu.Lock()
		defer b.entry.mu.Unlock()
	}

	return b.entry.analyzer.Analyze(path, content, line)
}
