// Package mergeconflict detects unresolved merge-conflict markers left in
// source files.
package mergeconflict

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/wardenscan/warden/internal/finding"
)

const (
	markerStart  = "<<<<<<<"
	markerMiddle = "======="
	markerEnd    = ">>>>>>>"

	// maxFindingsPerFile bounds output per the analyzer contract: a file
	// with pathological repeated markers never produces unbounded findings.
	maxFindingsPerFile = 1000
)

// Analyzer reports one High-severity finding per unresolved conflict marker
// set. It is line-local (only markerStart needs reporting) so it is
// streaming-capable.
type Analyzer struct{}

// New creates the analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Name() string { return "merge-conflict" }

func (a *Analyzer) Supports(path string) bool {
	return !strings.HasSuffix(path, ".bin") && !strings.HasSuffix(path, ".png") &&
		!strings.HasSuffix(path, ".jpg") && !strings.HasSuffix(path, ".gif")
}

func (a *Analyzer) SupportsStreaming() bool { return true }
func (a *Analyzer) ConcurrentSafe() bool    { return true }

// Analyze is called once per line in streaming mode (content is that
// line's bytes including its terminator) or once with the whole file in
// in-memory mode; both cases are handled by scanning content for marker
// lines.
func (a *Analyzer) Analyze(path string, content []byte, line int) ([]finding.Finding, error) {
	var findings []finding.Finding

	if line > 0 {
		// Streaming mode: content is exactly one line.
		if isMarker(content, markerStart) {
			findings = append(findings, a.finding(path, line))
		}

		return findings, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0

	for scanner.Scan() {
		lineNo++

		if len(findings) >= maxFindingsPerFile {
			break
		}

		if isMarker(scanner.Bytes(), markerStart) {
			findings = append(findings, a.finding(path, lineNo))
		}
	}

	return findings, nil
}

func isMarker(lineBytes []byte, marker string) bool {
	trimmed := bytes.TrimRight(lineBytes, "\r\n")

	return bytes.HasPrefix(trimmed, []byte(marker))
}

func (a *Analyzer) finding(path string, line int) finding.Finding {
	return finding.New(a.Name(), "unresolved-conflict-marker", finding.SeverityHigh, path, line,
		"unresolved merge conflict marker found")
}
