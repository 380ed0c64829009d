// Package comments flags maintenance-hazard markers left in code comments:
// TODO/FIXME/HACK/XXX tags, which are useful during development but
// accumulate as technical debt the team loses track of.
package comments

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wardenscan/warden/internal/finding"
)

const maxFindingsPerFile = 2000

var tagPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|XXX)\b\s*:?\s*(.*)`)

// commentPrefixes covers the line-comment syntax of the languages this
// engine is expected to see; a more precise comment-vs-string-literal
// distinction would need a real lexer per language, which this analyzer
// deliberately doesn't attempt.
var commentPrefixes = []string{"//", "#", "--", ";"}

// Analyzer is line-local: a tag is fully determined by its own line, so it
// is streaming-capable.
type Analyzer struct{}

func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Name() string           { return "stale-comment-tags" }
func (a *Analyzer) SupportsStreaming() bool { return true }
func (a *Analyzer) ConcurrentSafe() bool    { return true }

func (a *Analyzer) Supports(path string) bool {
	return !strings.HasSuffix(path, ".md") && !strings.HasSuffix(path, ".json")
}

func (a *Analyzer) Analyze(path string, content []byte, line int) ([]finding.Finding, error) {
	if line > 0 {
		f, ok := a.check(path, line, string(content))
		if !ok {
			return nil, nil
		}

		return []finding.Finding{f}, nil
	}

	var findings []finding.Finding

	for i, raw := range strings.Split(string(content), "\n") {
		if len(findings) >= maxFindingsPerFile {
			break
		}

		if f, ok := a.check(path, i+1, raw); ok {
			findings = append(findings, f)
		}
	}

	return findings, nil
}

func (a *Analyzer) check(path string, lineNo int, raw string) (finding.Finding, bool) {
	commentText, isComment := stripToComment(raw)
	if !isComment {
		return finding.Finding{}, false
	}

	m := tagPattern.FindStringSubmatch(commentText)
	if m == nil {
		return finding.Finding{}, false
	}

	tag := strings.ToUpper(m[1])
	detail := strings.TrimSpace(m[2])

	severity := finding.SeverityInfo
	if tag == "FIXME" || tag == "HACK" {
		severity = finding.SeverityLow
	}

	msg := fmt.Sprintf("%s comment found", tag)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}

	return finding.New(a.Name(), "tag-"+strings.ToLower(tag), severity, path, lineNo, msg), true
}

// stripToComment returns the text following the first recognized
// line-comment marker, if any.
func stripToComment(raw string) (string, bool) {
	for _, prefix := range commentPrefixes {
		if idx := strings.Index(raw, prefix); idx >= 0 {
			return raw[idx+len(prefix):], true
		}
	}

	return "", false
}
