// Package duplicate flags files that are near-duplicates of an
// already-seen file in the same run, using MinHash signatures indexed by
// LSH so similarity queries stay sub-linear in the number of files seen so
// far.
package duplicate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/wardenscan/warden/internal/finding"
	"github.com/wardenscan/warden/pkg/alg/lsh"
	"github.com/wardenscan/warden/pkg/alg/minhash"
)

const (
	numHashes          = 64
	numBands           = 16
	numRows            = numHashes / numBands
	similarityThreshold = 0.85
	shingleSize        = 5 // lines per shingle token
)

// Analyzer needs cross-file state (the running LSH index), so it is NOT
// concurrency-safe — the registry serializes calls to it — and it needs
// whole-file context, so it is not streaming-capable.
type Analyzer struct {
	mu    sync.Mutex
	index *lsh.Index
}

// New builds an empty duplicate detector scoped to one run. A fresh
// Analyzer must be constructed per run since the index is run-local state,
// not a cross-run cache.
func New() (*Analyzer, error) {
	idx, err := lsh.New(numBands, numRows)
	if err != nil {
		return nil, fmt.Errorf("duplicate: build lsh index: %w", err)
	}

	return &Analyzer{index: idx}, nil
}

func (a *Analyzer) Name() string           { return "near-duplicate" }
func (a *Analyzer) SupportsStreaming() bool { return false }
func (a *Analyzer) ConcurrentSafe() bool    { return false }

func (a *Analyzer) Supports(path string) bool {
	return !strings.HasSuffix(path, ".json") && !strings.HasSuffix(path, ".lock")
}

func (a *Analyzer) Analyze(path string, content []byte, _ int) ([]finding.Finding, error) {
	if len(content) == 0 {
		return nil, nil
	}

	sig, err := signatureOf(content)
	if err != nil {
		return nil, fmt.Errorf("duplicate: build signature: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	matches, err := a.index.QueryThreshold(sig, similarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("duplicate: query index: %w", err)
	}

	if err := a.index.Insert(path, sig); err != nil {
		return nil, fmt.Errorf("duplicate: insert into index: %w", err)
	}

	if len(matches) == 0 {
		return nil, nil
	}

	return []finding.Finding{
		finding.New(a.Name(), "near-duplicate-file", finding.SeverityLow, path, 0,
			fmt.Sprintf("file is near-duplicate of %s", matches[0])),
	}, nil
}

// signatureOf builds a MinHash signature over line-shingles of content, so
// similarity is robust to small line-level edits rather than requiring
// byte-exact matches.
func signatureOf(content []byte) (*minhash.Signature, error) {
	sig, err := minhash.New(numHashes)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(string(content), "\n")

	for i := 0; i+shingleSize <= len(lines); i++ {
		shingle := strings.Join(lines[i:i+shingleSize], "\n")
		sig.Add([]byte(shingle))
	}

	if len(lines) < shingleSize {
		sig.Add(content)
	}

	return sig, nil
}
