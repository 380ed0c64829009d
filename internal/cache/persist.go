package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"

	"github.com/wardenscan/warden/internal/engerrs"
	"github.com/wardenscan/warden/internal/finding"
)

// fileVersion is the current on-disk cache format version. Loaders reject
// any other value rather than attempt a partial parse, per the persisted
// representation's self-describing-and-versioned invariant.
const fileVersion = 1

// filePerm is the permission mode for the cache file and its temp sibling.
const filePerm = 0o644

// envelope is the top-level on-disk shape of a persisted cache.
type envelope struct {
	Version int           `json:"version"`
	Entries []entryRecord `json:"entries"`
}

type entryRecord struct {
	ContentHash string            `json:"content_hash"`
	ConfigHash  string            `json:"config_hash"`
	Findings    []finding.Finding `json:"findings"`
}

// Persist atomically writes the current in-memory cache to path: encode to a
// temp file in the same directory, then rename over the destination. Failure
// leaves the in-memory cache intact and the next run simply rebuilds
// entries; the orchestrator returns the error wrapped in
// engerrs.ErrCachePersistFailed alongside its report.
func (c *Cache) Persist(path string) error {
	snap := c.snapshot()

	env := envelope{Version: fileVersion, Entries: make([]entryRecord, 0, len(snap))}
	for k, findings := range snap {
		env.Entries = append(env.Entries, entryRecord{
			ContentHash: k.contentHash,
			ConfigHash:  k.configHash,
			Findings:    findings,
		})
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".cache-*.tmp")
	if err != nil {
		return fmt.Errorf("cache persist: create temp file: %w", err)
	}

	tmpPath := tmp.Name()

	writeErr := writeCompressed(tmp, env)

	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpPath)

		if writeErr != nil {
			return fmt.Errorf("cache persist: encode: %w", writeErr)
		}

		return fmt.Errorf("cache persist: close temp file: %w", closeErr)
	}

	err = os.Chmod(tmpPath, filePerm)
	if err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("cache persist: chmod: %w", err)
	}

	err = os.Rename(tmpPath, path)
	if err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("cache persist: rename: %w", err)
	}

	return nil
}

// writeCompressed encodes env as JSON through an LZ4 stream. Finding
// payloads compress well (repetitive keys, short strings), and LZ4's
// low decode latency keeps cold-start Load fast on a large cache.
func writeCompressed(w *os.File, env envelope) error {
	lz := lz4.NewWriter(w)

	encErr := json.NewEncoder(lz).Encode(env)
	if encErr != nil {
		lz.Close()

		return encErr
	}

	return lz.Close()
}

// Load best-effort restores persisted state from path. A missing file
// yields an empty cache with no error (first run). A parse failure, version
// mismatch, or corrupt entry yields an empty (or partial) cache with a
// logged warning — never an error that would abort the caller.
func (c *Cache) Load(path string) {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cache load: open", "path", path, "error", err)
		}

		return
	}
	defer f.Close()

	var env envelope

	lz := lz4.NewReader(f)

	err = json.NewDecoder(lz).Decode(&env)
	if err != nil {
		c.logger.Warn("cache load: decode, discarding cache", "path", path, "error", err)

		return
	}

	if env.Version != fileVersion {
		c.logger.Warn("cache load: unrecognized version, discarding cache",
			"path", path, "got", env.Version, "want", fileVersion, "hint", engerrs.ErrCacheVersionUnknown)

		return
	}

	entries := make(map[key][]finding.Finding, len(env.Entries))

	skipped := 0

	for _, rec := range env.Entries {
		k := key{contentHash: rec.ContentHash, configHash: rec.ConfigHash}
		if !validKey(k) {
			skipped++

			continue
		}

		entries[k] = rec.Findings
	}

	if skipped > 0 {
		c.logger.Warn("cache load: skipped entries with malformed keys", "count", skipped)
	}

	c.restore(entries)
}
