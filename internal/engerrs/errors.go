// Package engerrs collects the sentinel errors shared across the analysis
// engine's packages in one place, using the same small package-level Err*
// values the teacher declares throughout its own packages.
package engerrs

import "errors"

// Configuration errors. These are fatal: surfaced before any file is read.
var (
	ErrConfigInvalid    = errors.New("engine: invalid configuration")
	ErrConfigSchemaFail = errors.New("engine: configuration failed schema validation")
)

// Cache errors. A corrupt cache on load is non-fatal and discarded; a
// failure to persist on exit is surfaced to the caller since it means the
// next run starts cold.
var (
	ErrCacheCorrupt        = errors.New("engine: cache file is corrupt or unreadable")
	ErrCacheVersionUnknown = errors.New("engine: cache file version is not recognized")
	ErrCachePersistFailed  = errors.New("engine: failed to persist cache to disk")
)

// IO errors. main maps ErrIO, like any *fs.PathError, to a distinct exit
// code from a bad config or argument; no package in the engine wraps ErrIO
// itself, so unclassified filesystem failures reach main as *fs.PathError.
var (
	ErrIO = errors.New("engine: io error")
)

// Analyzer registry and dispatch errors.
var (
	ErrAnalyzerNameConflict = errors.New("engine: analyzer name already registered")
	ErrAnalyzerPanicked     = errors.New("engine: analyzer panicked")
	ErrAnalyzerTimeout      = errors.New("engine: analyzer exceeded its time budget")
)

// Validation pipeline errors.
var (
	ErrValidationTimeout = errors.New("engine: validation layer exceeded its time budget")
	ErrLayerFailed       = errors.New("engine: validation layer returned an error")
)

// Review queue errors.
var (
	ErrReviewerMismatch     = errors.New("review: reviewer is not the assignee")
	ErrUnknownReviewDecision = errors.New("review: unrecognized decision")
	ErrReviewNotFound       = errors.New("review: review id not found")
)

// Retention errors.
var (
	ErrIntegrityMismatch = errors.New("retention: digest does not match file contents")
	ErrRetentionLocked   = errors.New("retention: another process holds the lock file")
)
