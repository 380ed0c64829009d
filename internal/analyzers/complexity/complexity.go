// Package complexity flags functions whose approximate cyclomatic
// complexity exceeds a configurable threshold. It needs whole-file context
// (it must see a function's full body to count its branches), so it
// declares itself non-streaming-capable.
package complexity

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"

	"github.com/wardenscan/warden/internal/finding"
)

// DefaultThreshold matches the teacher's own style of conservative defaults
// for a "this is probably too complex" signal.
const DefaultThreshold = 15

const maxFindingsPerFile = 500

var funcDecl = regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// decisionKeywords are the branch-introducing tokens counted toward
// approximate cyclomatic complexity: one point per branch past the
// function's implicit baseline of 1.
var decisionKeywords = []string{"if ", "if(", "for ", "for(", "case ", "&&", "||", "catch ", "except "}

// Analyzer reports one Medium-severity finding per function whose score
// (counted decision points plus the baseline of 1) exceeds Threshold.
type Analyzer struct {
	Threshold int
}

// New creates the analyzer with DefaultThreshold.
func New() *Analyzer { return &Analyzer{Threshold: DefaultThreshold} }

// NewWithThreshold creates the analyzer with a caller-supplied threshold.
func NewWithThreshold(threshold int) *Analyzer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	return &Analyzer{Threshold: threshold}
}

func (a *Analyzer) Name() string              { return "complexity" }
func (a *Analyzer) ConcurrentSafe() bool       { return true }
func (a *Analyzer) SupportsStreaming() bool    { return false }

func (a *Analyzer) Supports(path string) bool {
	return hasSourceExtension(path)
}

func hasSourceExtension(path string) bool {
	for _, ext := range []string{".go", ".py", ".js", ".ts", ".java", ".c", ".cpp", ".rs"} {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			return true
		}
	}

	return false
}

// Analyze receives the whole file (or a bounded chunk, for very large files
// with this analyzer marked non-streaming) and scans it function-by-function
// using brace-depth tracking to find each function's extent.
func (a *Analyzer) Analyze(path string, content []byte, _ int) ([]finding.Finding, error) {
	var findings []finding.Finding

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var (
		lineNo        int
		inFunc        bool
		funcName      string
		funcStartLine int
		depth         int
		decisions     int
	)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if !inFunc {
			if m := funcDecl.FindStringSubmatch(line); m != nil {
				inFunc = true
				funcName = m[1]
				funcStartLine = lineNo
				depth = 0
				decisions = 0
			}
		}

		if inFunc {
			depth += bytes.Count([]byte(line), []byte("{"))
			depth -= bytes.Count([]byte(line), []byte("}"))
			decisions += countDecisions(line)

			if depth <= 0 && lineNo > funcStartLine {
				if decisions+1 > a.Threshold && len(findings) < maxFindingsPerFile {
					findings = append(findings, a.finding(path, funcStartLine, funcName, decisions+1))
				}

				inFunc = false
			}
		}
	}

	return findings, nil
}

func countDecisions(line string) int {
	n := 0

	for _, kw := range decisionKeywords {
		n += countOverlapless(line, kw)
	}

	return n
}

func countOverlapless(s, substr string) int {
	n := 0
	i := 0

	for {
		idx := indexFrom(s, substr, i)
		if idx < 0 {
			return n
		}

		n++
		i = idx + len(substr)
	}
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}

	idx := bytes.Index([]byte(s[from:]), []byte(substr))
	if idx < 0 {
		return -1
	}

	return from + idx
}

func (a *Analyzer) finding(path string, line int, funcName string, score int) finding.Finding {
	return finding.New(a.Name(), "high-cyclomatic-complexity", finding.SeverityMedium, path, line,
		fmt.Sprintf("function %q has approximate cyclomatic complexity %d (threshold %d)", funcName, score, a.Threshold))
}
