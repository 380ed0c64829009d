// Package cache implements the persistent, content-addressed store mapping
// (file content hash, config hash) to the findings an analysis run produced
// for that pair.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/wardenscan/warden/internal/finding"
	"github.com/wardenscan/warden/internal/hashutil"
)

// key identifies a cache entry. Both halves are hex digests, so the zero
// value can never collide with a real key.
type key struct {
	contentHash string
	configHash  string
}

// Stats reports cache hit/miss counters for telemetry.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache is a persistent content-addressed store mapping
// (content_hash, config_hash) -> findings. Many readers may call Lookup
// concurrently; Insert takes a short-held write lock. Persist/Load are
// expected to be called by a single owner (the orchestrator) at the
// boundaries of a run.
type Cache struct {
	mu      sync.RWMutex
	entries map[key][]finding.Finding

	hits   atomic.Int64
	misses atomic.Int64

	logger *slog.Logger
}

// New creates an empty Cache.
func New(logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}

	return &Cache{
		entries: make(map[key][]finding.Finding),
		logger:  logger,
	}
}

// Lookup returns the cached findings for (contentHash, configHash), if any.
// It is pure and constant-time with respect to cache size.
func (c *Cache) Lookup(contentHash, configHash string) ([]finding.Finding, bool) {
	c.mu.RLock()
	findings, ok := c.entries[key{contentHash, configHash}]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}

	// Findings flow by value; copy the slice header's backing data so a
	// caller mutating its copy can never corrupt the cached entry.
	if ok {
		clone := make([]finding.Finding, len(findings))
		copy(clone, findings)

		return clone, true
	}

	return nil, false
}

// Insert records findings for (contentHash, configHash), overwriting any
// existing entry for that key. Idempotent: inserting the same findings
// twice is equivalent to inserting them once.
func (c *Cache) Insert(contentHash, configHash string, findings []finding.Finding) {
	clone := make([]finding.Finding, len(findings))
	copy(clone, findings)

	c.mu.Lock()
	c.entries[key{contentHash, configHash}] = clone
	c.mu.Unlock()
}

// Len returns the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Stats returns current hit/miss counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// snapshot captures the entries for serialization without holding the lock
// during I/O.
func (c *Cache) snapshot() map[key][]finding.Finding {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[key][]finding.Finding, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}

	return out
}

// restore replaces the in-memory map wholesale, used by Load. It stores
// entries as given; Load has already dropped entries with malformed keys
// (see validKey) before calling it.
func (c *Cache) restore(entries map[key][]finding.Finding) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = entries
}

func validKey(k key) bool {
	return hashutil.ValidHex(k.contentHash, hashutil.ContentHashHexLen) &&
		hashutil.ValidHex(k.configHash, hashutil.ConfigHashHexLen)
}
