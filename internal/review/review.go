// Package review implements the manual-review queue findings land in when
// the validation pipeline can't confidently accept or dismiss them.
package review

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wardenscan/warden/internal/engerrs"
	"github.com/wardenscan/warden/internal/finding"
)

// Decision is a reviewer's verdict on a submitted finding.
type Decision string

const (
	DecisionValidFinding   Decision = "valid_finding"
	DecisionFalsePositive  Decision = "false_positive"
	DecisionNeedsMoreInfo  Decision = "needs_more_info"
	DecisionDeferred       Decision = "deferred"
	DecisionDuplicate      Decision = "duplicate"
)

func validDecision(d Decision) bool {
	switch d {
	case DecisionValidFinding, DecisionFalsePositive, DecisionNeedsMoreInfo, DecisionDeferred, DecisionDuplicate:
		return true
	default:
		return false
	}
}

// Priority drives SLA duration: higher-priority reviews are due sooner.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// slaByPriority mirrors an escalating-urgency policy: a High-priority
// finding sitting unassigned for a day is a bigger problem than a Low one.
var slaByPriority = map[Priority]time.Duration{
	PriorityLow:    7 * 24 * time.Hour,
	PriorityMedium: 48 * time.Hour,
	PriorityHigh:   24 * time.Hour,
}

// severityToPriority maps a finding's severity onto the review priority
// that drives its SLA.
func severityToPriority(s finding.Severity) Priority {
	switch s {
	case finding.SeverityCritical, finding.SeverityHigh:
		return PriorityHigh
	case finding.SeverityMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Record is one finding under review.
type Record struct {
	ReviewID           string
	Finding            finding.Finding
	Assignee           string // Empty when queued but unassigned (overflow).
	Priority           Priority
	SubmittedAt        time.Time
	DueAt              time.Time
	Decision           Decision // Empty while pending.
	ReviewerConfidence float64
	Comments           string
	TimeSpent          time.Duration
	DecidedAt          time.Time
}

func (r *Record) pending() bool { return r.Decision == "" }

func (r *Record) overdue(now time.Time) bool {
	return r.pending() && now.After(r.DueAt)
}

// Reviewer is one entry in the roster round-robin assignment draws from.
type Reviewer struct {
	ID          string
	Expertise   []string
	MaxWorkload int
}

func (rv Reviewer) handles(tag string) bool {
	if tag == "" {
		return true
	}

	for _, e := range rv.Expertise {
		if e == tag {
			return true
		}
	}

	return false
}

// Statistics summarizes queue state, as returned by (*Queue).Statistics.
type Statistics struct {
	Pending                int
	Completed              int
	AverageResolutionHours float64
	DecisionBreakdown      map[Decision]int
	OverdueCount           int
}

// idFunc is swappable in tests; production uses uuid.NewString.
var idFunc = uuid.NewString

// nowFunc is swappable in tests.
var nowFunc = time.Now

// Queue is the review queue: append-only decision history, round-robin
// assignment bounded by reviewer workload.
type Queue struct {
	mu        sync.Mutex
	reviewers []Reviewer
	records   map[string]*Record
	order     []string // Submission order, for deterministic round-robin and listing.
	nextRR    int
}

// NewQueue creates an empty Queue with the given reviewer roster.
func NewQueue(reviewers []Reviewer) *Queue {
	return &Queue{
		reviewers: reviewers,
		records:   make(map[string]*Record),
	}
}

// Submit assigns a ReviewID to each finding, selects an assignee via
// round-robin among reviewers whose expertise includes the finding's
// Category (or any reviewer, if Category is empty), skipping anyone already
// at MaxWorkload. Findings that can't be assigned remain queued with an
// empty Assignee. Returns the review ids in the same order as findings.
func (q *Queue) Submit(findings []finding.Finding) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]string, len(findings))

	for i, f := range findings {
		priority := severityToPriority(f.Severity)
		now := nowFunc()

		rec := &Record{
			ReviewID:    idFunc(),
			Finding:     f,
			Priority:    priority,
			SubmittedAt: now,
			DueAt:       now.Add(slaByPriority[priority]),
		}

		rec.Assignee = q.pickAssignee(f.Category)

		q.records[rec.ReviewID] = rec
		q.order = append(q.order, rec.ReviewID)
		ids[i] = rec.ReviewID
	}

	return ids
}

// pickAssignee walks the roster starting from nextRR, wrapping once, and
// returns the first reviewer under workload whose expertise covers tag.
// Must be called with q.mu held.
func (q *Queue) pickAssignee(tag string) string {
	if len(q.reviewers) == 0 {
		return ""
	}

	for i := 0; i < len(q.reviewers); i++ {
		idx := (q.nextRR + i) % len(q.reviewers)
		rv := q.reviewers[idx]

		if !rv.handles(tag) {
			continue
		}

		if q.workload(rv.ID) >= rv.MaxWorkload {
			continue
		}

		q.nextRR = (idx + 1) % len(q.reviewers)

		return rv.ID
	}

	return ""
}

// workload counts pending reviews currently assigned to reviewerID. Must be
// called with q.mu held.
func (q *Queue) workload(reviewerID string) int {
	n := 0

	for _, id := range q.order {
		rec := q.records[id]
		if rec.Assignee == reviewerID && rec.pending() {
			n++
		}
	}

	return n
}

// RecordDecision records a reviewer's verdict. Fails if reviewID is
// unknown, the decision is not a recognized value, the review already has a
// decision, or reviewerID does not match the assignee (an unassigned review
// may be claimed by anyone).
func (q *Queue) RecordDecision(reviewID, reviewerID string, decision Decision, confidence float64, comments string, timeSpent time.Duration) error {
	if !validDecision(decision) {
		return fmt.Errorf("%w: %q", engerrs.ErrUnknownReviewDecision, decision)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[reviewID]
	if !ok {
		return fmt.Errorf("%w: %s", engerrs.ErrReviewNotFound, reviewID)
	}

	if !rec.pending() {
		return fmt.Errorf("review %s already has decision %q", reviewID, rec.Decision)
	}

	if rec.Assignee != "" && rec.Assignee != reviewerID {
		return fmt.Errorf("%w: review %s is assigned to %s, not %s", engerrs.ErrReviewerMismatch, reviewID, rec.Assignee, reviewerID)
	}

	rec.Decision = decision
	rec.ReviewerConfidence = confidence
	rec.Comments = comments
	rec.TimeSpent = timeSpent
	rec.DecidedAt = nowFunc()

	if rec.Assignee == "" {
		rec.Assignee = reviewerID
	}

	return nil
}

// Statistics computes current queue-wide metrics.
func (q *Queue) Statistics() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Statistics{DecisionBreakdown: make(map[Decision]int)}

	now := nowFunc()

	var totalResolutionHours float64

	for _, id := range q.order {
		rec := q.records[id]

		if rec.pending() {
			stats.Pending++

			if rec.overdue(now) {
				stats.OverdueCount++
			}

			continue
		}

		stats.Completed++
		stats.DecisionBreakdown[rec.Decision]++
		totalResolutionHours += rec.DecidedAt.Sub(rec.SubmittedAt).Hours()
	}

	if stats.Completed > 0 {
		stats.AverageResolutionHours = totalResolutionHours / float64(stats.Completed)
	}

	return stats
}

// Pending returns all currently pending records, sorted by submission time
// (oldest first) — the order reviewers should work through them in.
func (q *Queue) Pending() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Record, 0)

	for _, id := range q.order {
		rec := q.records[id]
		if rec.pending() {
			out = append(out, *rec)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })

	return out
}

// Completed returns all decided records, sorted by decision time (oldest
// first). Used to build confidence history for threshold recommendations.
func (q *Queue) Completed() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Record, 0)

	for _, id := range q.order {
		rec := q.records[id]
		if !rec.pending() {
			out = append(out, *rec)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DecidedAt.Before(out[j].DecidedAt) })

	return out
}
