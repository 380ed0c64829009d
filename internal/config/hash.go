package config

import (
	"encoding/json"
	"sort"

	"github.com/wardenscan/warden/internal/hashutil"
)

// Hash returns the config hash used as half of every cache key: a 128-bit
// digest over the settings that affect analysis output. Fields that only
// affect operational behavior (watch, logging, retention, cache path) are
// deliberately excluded — changing them must not invalidate every cached
// finding.
func (c *Config) Hash() string {
	type canonicalAnalyzers = map[string]map[string]any

	canonical := struct {
		ExcludePatterns    []string            `json:"exclude_patterns"`
		IncludeExtensions  []string            `json:"include_extensions"`
		MaxFileSizeBytes   int64               `json:"max_file_size_bytes"`
		StreamingThreshold int64               `json:"streaming_threshold_bytes"`
		Analyzers          canonicalAnalyzers  `json:"analyzers"`
		Validation         ValidationConfig    `json:"validation"`
	}{
		ExcludePatterns:    sortedCopy(c.General.ExcludePatterns),
		IncludeExtensions:  sortedCopy(c.General.IncludeExtensions),
		MaxFileSizeBytes:   c.General.MaxFileSizeBytes,
		StreamingThreshold: c.General.StreamingThresholdBytes,
		Analyzers:          c.Analyzers,
		Validation:         c.Validation,
	}

	// Marshal errors here would mean a non-serializable field snuck into
	// Config; every field above is a plain value type, so this cannot fail.
	data, _ := json.Marshal(canonical)

	return hashutil.ConfigHash(data)
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)

	return out
}
