package finding

import (
	"sort"
	"time"
)

// Summary holds totals derived from a finding set. TotalFindings and
// BySeverity are always a pure function of the findings it summarizes (see
// Report.recomputeSummary); FilesScanned, Duration and Interrupted are set
// by SetFilesScanned and Finalize.
type Summary struct {
	TotalFindings  int           `json:"total_findings"`
	BySeverity     map[string]int `json:"by_severity"`
	FilesScanned   int           `json:"files_scanned"`
	Duration       time.Duration `json:"duration"`
	Interrupted    bool          `json:"interrupted"`
}

// Metadata carries provenance information about a report that isn't derived
// from the findings themselves.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	ToolVersion string    `json:"tool_version"`
}

// Report is the top-level output of an analysis run.
type Report struct {
	ConfigHash string    `json:"config_hash"`
	Findings   []Finding `json:"findings"`
	Summary    Summary   `json:"summary"`
	Metadata   Metadata  `json:"metadata"`
}

// NewReport creates an empty report for the given config hash.
func NewReport(configHash string) *Report {
	return &Report{
		ConfigHash: configHash,
		Findings:   make([]Finding, 0),
		Summary:    Summary{BySeverity: make(map[string]int)},
	}
}

// SetFilesScanned records how many files were enumerated for this run.
// Called once by the orchestrator before Finalize.
func (r *Report) SetFilesScanned(n int) {
	r.Summary.FilesScanned = n
}

// Finalize sorts the findings, recomputes the summary, and stamps metadata.
// It must be the last mutation performed on a Report before it is returned
// to a caller, since everything else assumes the invariants it establishes.
func (r *Report) Finalize(duration time.Duration, interrupted bool, toolVersion string) {
	SortFindings(r.Findings)
	r.recomputeSummary()
	r.Summary.Duration = duration
	r.Summary.Interrupted = interrupted
	r.Metadata.GeneratedAt = time.Now().UTC()
	r.Metadata.ToolVersion = toolVersion
}

// recomputeSummary derives Summary.TotalFindings and Summary.BySeverity from
// Findings. It never reads FilesScanned/Duration/Interrupted, which are set
// independently by the orchestrator.
func (r *Report) recomputeSummary() {
	bySeverity := make(map[string]int, 5)

	for _, f := range r.Findings {
		bySeverity[f.Severity.String()]++
	}

	r.Summary.TotalFindings = len(r.Findings)
	r.Summary.BySeverity = bySeverity
}

// SortFindings orders findings by (severity descending i.e. most severe
// first, file ascending, line ascending, id ascending) as required by the
// data model. Sorting an already-sorted slice is a no-op (stable, and the
// comparator is a strict total order over these keys).
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]

		if a.Severity != b.Severity {
			return a.Severity < b.Severity
		}

		if a.File != b.File {
			return a.File < b.File
		}

		if a.Line != b.Line {
			return a.Line < b.Line
		}

		return a.ID < b.ID
	})
}

// Dedup removes findings with duplicate ids, keeping the first occurrence.
// Two Findings with equal id are the same finding per the data model
// invariant, so callers merging cache hits with fresh analyzer output use
// this to avoid double-counting.
func Dedup(findings []Finding) []Finding {
	seen := make(map[string]struct{}, len(findings))
	out := make([]Finding, 0, len(findings))

	for _, f := range findings {
		if _, ok := seen[f.ID]; ok {
			continue
		}

		seen[f.ID] = struct{}{}
		out = append(out, f)
	}

	return out
}
