package dispatch_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenscan/warden/internal/analyzer"
	"github.com/wardenscan/warden/internal/dispatch"
	"github.com/wardenscan/warden/internal/finding"
)

// recordingAnalyzer records every invocation so tests can assert how the
// dispatcher chose to drive it.
type recordingAnalyzer struct {
	name      string
	streaming bool
	calls     int32
	onCall    func(content []byte, line int)
	panicOn   int32
	sleep     time.Duration
}

func (r *recordingAnalyzer) Name() string           { return r.name }
func (r *recordingAnalyzer) Supports(string) bool   { return true }
func (r *recordingAnalyzer) SupportsStreaming() bool { return r.streaming }

func (r *recordingAnalyzer) Analyze(_ string, content []byte, line int) ([]finding.Finding, error) {
	n := atomic.AddInt32(&r.calls, 1)
	if r.panicOn != 0 && n == r.panicOn {
		panic("boom")
	}

	if r.sleep > 0 {
		time.Sleep(r.sleep)
	}

	if r.onCall != nil {
		r.onCall(content, line)
	}

	return nil, nil
}

func bind(t *testing.T, a analyzer.Analyzer) analyzer.BoundAnalyzer {
	t.Helper()

	r := analyzer.NewRegistry()
	require.NoError(t, r.Register(a))

	applicable := r.Applicable("any")
	require.Len(t, applicable, 1)

	return applicable[0]
}

func TestDispatcher_SmallFileCallsOnceWithFullContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\nline two\n"), 0o644))

	var gotContent []byte
	var gotLine int

	a := &recordingAnalyzer{name: "a", onCall: func(content []byte, line int) {
		gotContent = content
		gotLine = line
	}}

	d := dispatch.New(dispatch.Options{}, nil)
	d.AnalyzeFile(path, []analyzer.BoundAnalyzer{bind(t, a)})

	assert.Equal(t, int32(1), a.calls)
	assert.Equal(t, "line one\nline two\n", string(gotContent))
	assert.Equal(t, 0, gotLine)
}

func TestDispatcher_ZeroByteFileCallsOnceWithEmptySlice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	a := &recordingAnalyzer{name: "a"}

	d := dispatch.New(dispatch.Options{}, nil)
	d.AnalyzeFile(path, []analyzer.BoundAnalyzer{bind(t, a)})

	assert.Equal(t, int32(1), a.calls)
}

func TestDispatcher_LargeFileStreamsLinesToStreamingAnalyzer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")

	var sb strings.Builder
	for i := 0; i < 3; i++ {
		sb.WriteString(strings.Repeat("x", 1000))
		sb.WriteString("\n")
	}

	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	var mu sync.Mutex
	var lines []int

	a := &recordingAnalyzer{name: "a", streaming: true, onCall: func(_ []byte, line int) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	}}

	d := dispatch.New(dispatch.Options{StreamingThreshold: 10}, nil)
	d.AnalyzeFile(path, []analyzer.BoundAnalyzer{bind(t, a)})

	assert.Equal(t, []int{1, 2, 3}, lines)
}

func TestDispatcher_LargeFileChunksNonStreamingAnalyzer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("y", 100)), 0o644))

	a := &recordingAnalyzer{name: "a", streaming: false}

	d := dispatch.New(dispatch.Options{StreamingThreshold: 10}, nil)
	d.AnalyzeFile(path, []analyzer.BoundAnalyzer{bind(t, a)})

	assert.GreaterOrEqual(t, a.calls, int32(1))
}

func TestDispatcher_AnalyzerPanicYieldsInfoFindingNotCrash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	a := &recordingAnalyzer{name: "a", panicOn: 1}

	d := dispatch.New(dispatch.Options{}, nil)
	findings := d.AnalyzeFile(path, []analyzer.BoundAnalyzer{bind(t, a)})

	require.Len(t, findings, 1)
	assert.Equal(t, finding.SeverityInfo, findings[0].Severity)
}

func TestDispatcher_AnalyzerTimeoutYieldsInfoFinding(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	a := &recordingAnalyzer{name: "a", sleep: 50 * time.Millisecond}

	d := dispatch.New(dispatch.Options{MaxAnalysisDuration: 5 * time.Millisecond}, nil)
	findings := d.AnalyzeFile(path, []analyzer.BoundAnalyzer{bind(t, a)})

	require.Len(t, findings, 1)
	assert.Equal(t, finding.SeverityInfo, findings[0].Severity)
}

func TestDispatcher_MissingFileYieldsInfoFindingNotPanic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.txt")

	a := &recordingAnalyzer{name: "a"}

	d := dispatch.New(dispatch.Options{}, nil)
	findings := d.AnalyzeFile(path, []analyzer.BoundAnalyzer{bind(t, a)})

	require.Len(t, findings, 1)
	assert.Equal(t, 0, int(a.calls))
}

func TestDispatcher_NoApplicableAnalyzersReturnsNil(t *testing.T) {
	d := dispatch.New(dispatch.Options{}, nil)
	findings := d.AnalyzeFile("whatever", nil)
	assert.Nil(t, findings)
}
