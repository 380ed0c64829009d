// Package dispatch chooses between in-memory and line-streamed analysis for
// a file and drives each applicable analyzer, concatenating their findings.
package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/wardenscan/warden/internal/analyzer"
	"github.com/wardenscan/warden/internal/engerrs"
	"github.com/wardenscan/warden/internal/finding"
)

// DefaultStreamingThreshold is the file size above which line-streamed
// dispatch replaces whole-file dispatch (5 MiB).
const DefaultStreamingThreshold = 5 * 1024 * 1024

// yieldEveryLines is how often the streaming path yields the goroutine so a
// single huge file doesn't starve its peers.
const yieldEveryLines = 10_000

// chunkedBufferSize bounds the read buffer used for large files analyzed by
// a non-streaming-capable analyzer (the "chunked read with a bounded
// buffer" degraded path).
const chunkedBufferSize = 1 << 20 // 1 MiB

// maxScanTokenSize is the buffer size of the streaming path's line reader,
// sized for pathologically long single lines (minified JS, generated code);
// ReadBytes still returns longer lines whole.
const maxScanTokenSize = 8 << 20

// Options configures a Dispatcher.
type Options struct {
	StreamingThreshold  int64
	MaxAnalysisDuration time.Duration // Zero disables the per-analyzer timeout.
}

// Dispatcher drives the applicable analyzers for one file.
type Dispatcher struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Dispatcher. Zero-value Options fields fall back to their
// documented defaults.
func New(opts Options, logger *slog.Logger) *Dispatcher {
	if opts.StreamingThreshold <= 0 {
		opts.StreamingThreshold = DefaultStreamingThreshold
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{opts: opts, logger: logger}
}

// AnalyzeFile runs every analyzer in applicable over path, choosing
// in-memory or streaming dispatch based on file size.
func (d *Dispatcher) AnalyzeFile(path string, applicable []analyzer.BoundAnalyzer) []finding.Finding {
	if len(applicable) == 0 {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return []finding.Finding{
			finding.New("engine", "file-unavailable", finding.SeverityInfo, path, 0,
				fmt.Sprintf("file disappeared before analysis: %v", err)),
		}
	}

	if info.Size() <= d.opts.StreamingThreshold {
		return d.analyzeInMemory(path, applicable)
	}

	return d.analyzeStreaming(path, applicable)
}

// analyzeInMemory reads the whole file once and calls every analyzer once
// with the full byte slice. A zero-byte file is passed an empty slice
// exactly once.
func (d *Dispatcher) analyzeInMemory(path string, applicable []analyzer.BoundAnalyzer) []finding.Finding {
	content, err := os.ReadFile(path)
	if err != nil {
		return []finding.Finding{
			finding.New("engine", "file-unavailable", finding.SeverityInfo, path, 0,
				fmt.Sprintf("file disappeared before analysis: %v", err)),
		}
	}

	var findings []finding.Finding

	for _, a := range applicable {
		findings = append(findings, d.invoke(a, path, content, 0)...)
	}

	return findings
}

// analyzeStreaming dispatches line-at-a-time to streaming-capable analyzers
// and via a bounded chunked read to the rest.
func (d *Dispatcher) analyzeStreaming(path string, applicable []analyzer.BoundAnalyzer) []finding.Finding {
	var lineAnalyzers, chunkAnalyzers []analyzer.BoundAnalyzer

	for _, a := range applicable {
		if a.SupportsStreaming() {
			lineAnalyzers = append(lineAnalyzers, a)
		} else {
			chunkAnalyzers = append(chunkAnalyzers, a)
		}
	}

	var findings []finding.Finding

	if len(lineAnalyzers) > 0 {
		findings = append(findings, d.streamLines(path, lineAnalyzers)...)
	}

	if len(chunkAnalyzers) > 0 {
		findings = append(findings, d.streamChunks(path, chunkAnalyzers)...)
	}

	return findings
}

// streamLines invokes each line-capable analyzer once per line, retaining
// the line terminator, with the 1-based line number.
func (d *Dispatcher) streamLines(path string, analyzers []analyzer.BoundAnalyzer) []finding.Finding {
	f, err := os.Open(path)
	if err != nil {
		return []finding.Finding{
			finding.New("engine", "file-unavailable", finding.SeverityInfo, path, 0,
				fmt.Sprintf("file disappeared before analysis: %v", err)),
		}
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, maxScanTokenSize)

	var findings []finding.Finding

	lineNo := 0

	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++

			for _, a := range analyzers {
				findings = append(findings, d.invoke(a, path, line, lineNo)...)
			}

			if lineNo%yieldEveryLines == 0 {
				runtime.Gosched()
			}
		}

		if readErr != nil {
			break
		}
	}

	return findings
}

// streamChunks invokes each non-streaming-capable analyzer once per
// fixed-size chunk, since it needs more than one line of context but the
// file is too large to load whole.
func (d *Dispatcher) streamChunks(path string, analyzers []analyzer.BoundAnalyzer) []finding.Finding {
	f, err := os.Open(path)
	if err != nil {
		return []finding.Finding{
			finding.New("engine", "file-unavailable", finding.SeverityInfo, path, 0,
				fmt.Sprintf("file disappeared before analysis: %v", err)),
		}
	}
	defer f.Close()

	buf := make([]byte, chunkedBufferSize)

	var findings []finding.Finding

	chunks := 0

	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			for _, a := range analyzers {
				findings = append(findings, d.invoke(a, path, chunk, 0)...)
			}

			chunks++
			if chunks%1000 == 0 {
				runtime.Gosched()
			}
		}

		if readErr != nil {
			break
		}
	}

	return findings
}

// invoke calls one analyzer with panic recovery and an optional timeout,
// converting either failure mode into an Info finding instead of aborting
// the file or the run.
func (d *Dispatcher) invoke(a analyzer.BoundAnalyzer, path string, content []byte, line int) (result []finding.Finding) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("analyzer panicked", "analyzer", a.Name(), "path", path, "panic", r)

			result = []finding.Finding{
				finding.New("engine", "analyzer-failure", finding.SeverityInfo, path, line,
					fmt.Sprintf("%v: analyzer %q panicked: %v", engerrs.ErrAnalyzerPanicked, a.Name(), r)),
			}
		}
	}()

	if d.opts.MaxAnalysisDuration <= 0 {
		findings, err := a.Analyze(path, content, line)
		if err != nil {
			return d.failureFinding(a.Name(), path, line, err)
		}

		return findings
	}

	return d.invokeWithTimeout(a, path, content, line)
}

// invokeWithTimeout runs the analyzer on its own goroutine and bounds how
// long the caller waits. A timed-out analyzer's goroutine is abandoned (Go
// has no preemptive cancellation of arbitrary code) but the file's other
// analyzers and the rest of the run proceed.
func (d *Dispatcher) invokeWithTimeout(a analyzer.BoundAnalyzer, path string, content []byte, line int) []finding.Finding {
	type outcome struct {
		findings []finding.Finding
		err      error
	}

	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("analyzer panicked", "analyzer", a.Name(), "path", path, "panic", r)
				ch <- outcome{err: fmt.Errorf("%w: %v", engerrs.ErrAnalyzerPanicked, r)}
			}
		}()

		findings, err := a.Analyze(path, content, line)
		ch <- outcome{findings, err}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.MaxAnalysisDuration)
	defer cancel()

	select {
	case out := <-ch:
		if out.err != nil {
			return d.failureFinding(a.Name(), path, line, out.err)
		}

		return out.findings

	case <-ctx.Done():
		d.logger.Warn("analyzer timed out", "analyzer", a.Name(), "path", path)

		return []finding.Finding{
			finding.New("engine", "analyzer-timeout", finding.SeverityInfo, path, line,
				fmt.Sprintf("%v: analyzer %q exceeded %s", engerrs.ErrAnalyzerTimeout, a.Name(), d.opts.MaxAnalysisDuration)),
		}
	}
}

func (d *Dispatcher) failureFinding(analyzerName, path string, line int, err error) []finding.Finding {
	d.logger.Error("analyzer failed", "analyzer", analyzerName, "path", path, "error", err)

	return []finding.Finding{
		finding.New("engine", "analyzer-failure", finding.SeverityInfo, path, line,
			fmt.Sprintf("analyzer %q failed: %v", analyzerName, err)),
	}
}
