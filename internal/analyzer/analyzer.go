// Package analyzer defines the contract every analyzer plugged into the
// engine must satisfy, and a Registry that holds a set of them.
package analyzer

import "github.com/wardenscan/warden/internal/finding"

// Analyzer is the contract every analyzer implementation must satisfy.
//
// Analyze MUST be deterministic for equal inputs, MUST NOT perform I/O
// beyond reading the bytes it is given, MUST enforce an internal bound on
// the number of findings it emits per invocation, and MUST treat invalid
// UTF-8 as uninterpreted bytes rather than erroring.
type Analyzer interface {
	// Name returns a unique, stable identifier for this analyzer.
	Name() string
	// Supports reports whether this analyzer applies to path. It must be
	// cheap and pure — no I/O, no allocation-heavy work.
	Supports(path string) bool
	// Analyze produces findings for the given path and bytes. bytes is
	// either the full file content (in-memory mode) or a single line
	// (streaming mode), per the StreamingCapable contract below.
	Analyze(path string, content []byte, line int) ([]finding.Finding, error)
}

// StreamingCapable is implemented by analyzers that can be invoked once per
// line instead of once per whole file. Analyzers that need whole-file
// context (e.g. cross-line pattern matching) must not implement this
// interface; the dispatcher then falls back to a bounded chunked read for
// them even when the file exceeds the streaming threshold.
type StreamingCapable interface {
	Analyzer
	SupportsStreaming() bool
}

// ConcurrencySafe is implemented by analyzers whose Analyze method may be
// called concurrently from multiple goroutines without external
// synchronization. Analyzers that don't implement this are wrapped by the
// registry in a mutex so the engine can treat every analyzer uniformly.
type ConcurrencySafe interface {
	Analyzer
	ConcurrentSafe() bool
}

// supportsStreaming reports whether a can be invoked line-at-a-time. An
// analyzer that doesn't declare an opinion is assumed not streaming-capable,
// which is the conservative (whole-file) default.
func supportsStreaming(a Analyzer) bool {
	sc, ok := a.(StreamingCapable)

	return ok && sc.SupportsStreaming()
}

// isConcurrencySafe reports whether a declares itself safe for concurrent
// use. Analyzers that don't declare an opinion are wrapped defensively,
// per this engine's Open Question decision (see DESIGN.md).
func isConcurrencySafe(a Analyzer) bool {
	cs, ok := a.(ConcurrencySafe)

	return ok && cs.ConcurrentSafe()
}
