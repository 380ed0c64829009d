package review

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wardenscan/warden/internal/finding"
)

// document is the on-disk shape of a Queue: reviewers plus every record
// (pending and decided). Decisions are never rewritten once set, only
// appended to this document on the next Persist — satisfying the
// append-only requirement without needing a real append-only log format for
// what is, in practice, a small document.
type document struct {
	Reviewers []Reviewer       `yaml:"reviewers"`
	Records   []recordDocument `yaml:"records"`
}

type recordDocument struct {
	ReviewID           string          `yaml:"review_id"`
	Finding            finding.Finding `yaml:"finding"`
	Assignee           string        `yaml:"assignee,omitempty"`
	Priority           Priority      `yaml:"priority"`
	SubmittedAt        time.Time     `yaml:"submitted_at"`
	DueAt              time.Time     `yaml:"due_at"`
	Decision           Decision      `yaml:"decision,omitempty"`
	ReviewerConfidence float64       `yaml:"reviewer_confidence,omitempty"`
	Comments           string        `yaml:"comments,omitempty"`
	TimeSpent          time.Duration `yaml:"time_spent,omitempty"`
	DecidedAt          time.Time     `yaml:"decided_at,omitempty"`
}

// Persist atomically writes the queue's full state (reviewers + every
// record) to path.
func (q *Queue) Persist(path string) error {
	q.mu.Lock()

	doc := document{Reviewers: q.reviewers, Records: make([]recordDocument, 0, len(q.order))}
	for _, id := range q.order {
		rec := q.records[id]
		doc.Records = append(doc.Records, recordDocument{
			ReviewID: rec.ReviewID, Finding: rec.Finding, Assignee: rec.Assignee,
			Priority: rec.Priority, SubmittedAt: rec.SubmittedAt, DueAt: rec.DueAt,
			Decision: rec.Decision, ReviewerConfidence: rec.ReviewerConfidence,
			Comments: rec.Comments, TimeSpent: rec.TimeSpent, DecidedAt: rec.DecidedAt,
		})
	}

	q.mu.Unlock()

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("review persist: marshal: %w", err)
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".review-*.tmp")
	if err != nil {
		return fmt.Errorf("review persist: create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()

	if writeErr != nil || closeErr != nil {
		os.Remove(tmpPath)

		if writeErr != nil {
			return fmt.Errorf("review persist: write: %w", writeErr)
		}

		return fmt.Errorf("review persist: close: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("review persist: rename: %w", err)
	}

	return nil
}

// Load replaces the queue's state with the document at path. A missing file
// is a silent no-op (first run); a malformed file returns an error so the
// caller can decide whether to start fresh or abort, since unlike the
// content cache, losing review history is a human-visible regression.
func (q *Queue) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("review load: read: %w", err)
	}

	var doc document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("review load: unmarshal: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.reviewers = doc.Reviewers
	q.records = make(map[string]*Record, len(doc.Records))
	q.order = make([]string, 0, len(doc.Records))

	for _, rd := range doc.Records {
		q.records[rd.ReviewID] = &Record{
			ReviewID: rd.ReviewID, Finding: rd.Finding, Assignee: rd.Assignee,
			Priority: rd.Priority, SubmittedAt: rd.SubmittedAt, DueAt: rd.DueAt,
			Decision: rd.Decision, ReviewerConfidence: rd.ReviewerConfidence,
			Comments: rd.Comments, TimeSpent: rd.TimeSpent, DecidedAt: rd.DecidedAt,
		}
		q.order = append(q.order, rd.ReviewID)
	}

	return nil
}
