// Package retention prunes the on-disk archive of report files: age-based
// cleanup, then size-based cleanup, then an integrity pass that quarantines
// any file whose digest no longer matches its recorded content.
package retention

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/wardenscan/warden/internal/hashutil"
)

// Policy configures one retention pass.
type Policy struct {
	ResultsDir          string
	BackupDir           string
	MaxAge              time.Duration
	MinResultsToKeep    int
	MaxTotalSizeBytes   int64
	IntegrityReportPath string
}

// fileRecord is one report file's metadata, re-enumerated fresh before each
// pass per spec's "operate on a fresh enumeration" requirement.
type fileRecord struct {
	path      string
	size      int64
	timestamp time.Time
}

// Report summarizes one invocation of Run.
type Report struct {
	AgeDeleted       []string
	SizeDeleted      []string
	Quarantined      []string
	TotalFiles       int
	CorruptedFiles   []string
	Digests          map[string]string
}

// Run executes age cleanup, then size cleanup, then the integrity pass, in
// that order, each over a fresh directory listing.
func Run(policy Policy) (*Report, error) {
	report := &Report{Digests: make(map[string]string)}

	deleted, err := ageCleanup(policy)
	if err != nil {
		return nil, fmt.Errorf("retention: age cleanup: %w", err)
	}

	report.AgeDeleted = deleted

	deleted, err = sizeCleanup(policy)
	if err != nil {
		return nil, fmt.Errorf("retention: size cleanup: %w", err)
	}

	report.SizeDeleted = deleted

	if err := integrityPass(policy, report); err != nil {
		return nil, fmt.Errorf("retention: integrity pass: %w", err)
	}

	if policy.IntegrityReportPath != "" {
		if err := writeIntegrityReport(policy.IntegrityReportPath, report); err != nil {
			return nil, fmt.Errorf("retention: write integrity report: %w", err)
		}
	}

	return report, nil
}

// enumerate lists every report file under dir, newest first.
func enumerate(dir string) ([]fileRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	records := make([]fileRecord, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == manifestFileName {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		info, err := entry.Info()
		if err != nil {
			continue
		}

		records = append(records, fileRecord{
			path:      path,
			size:      info.Size(),
			timestamp: reportTimestamp(path, info),
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].timestamp.After(records[j].timestamp) })

	return records, nil
}

// reportTimestamp extracts the authoritative timestamp from the report
// filename (ISO-8601, per the on-disk format), falling back to mtime.
func reportTimestamp(path string, info os.FileInfo) time.Time {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]

	if t, err := time.Parse("2006-01-02T15-04-05Z", stem); err == nil {
		return t
	}

	if t, err := time.Parse(time.RFC3339, stem); err == nil {
		return t
	}

	return info.ModTime()
}

// ageCleanup deletes files older than policy.MaxAge, but never drops below
// MinResultsToKeep newest files.
func ageCleanup(policy Policy) ([]string, error) {
	records, err := enumerate(policy.ResultsDir)
	if err != nil {
		return nil, err
	}

	if policy.MaxAge <= 0 {
		return nil, nil
	}

	cutoff := time.Now().Add(-policy.MaxAge)

	var deleted []string

	for i, rec := range records {
		if i < policy.MinResultsToKeep {
			continue
		}

		if rec.timestamp.After(cutoff) {
			continue
		}

		if err := os.Remove(rec.path); err != nil {
			continue
		}

		deleted = append(deleted, rec.path)
	}

	return deleted, nil
}

// sizeCleanup deletes oldest-first until total size is under the budget,
// still respecting MinResultsToKeep.
func sizeCleanup(policy Policy) ([]string, error) {
	records, err := enumerate(policy.ResultsDir)
	if err != nil {
		return nil, err
	}

	if policy.MaxTotalSizeBytes <= 0 {
		return nil, nil
	}

	var total int64
	for _, rec := range records {
		total += rec.size
	}

	if total <= policy.MaxTotalSizeBytes {
		return nil, nil
	}

	var deleted []string

	for i := len(records) - 1; i >= policy.MinResultsToKeep && total > policy.MaxTotalSizeBytes; i-- {
		rec := records[i]

		if err := os.Remove(rec.path); err != nil {
			continue
		}

		total -= rec.size
		deleted = append(deleted, rec.path)
	}

	return deleted, nil
}

// integrityPass recomputes each remaining file's digest and quarantines any
// mismatch — this is the only file move the retention manager performs.
func integrityPass(policy Policy, report *Report) error {
	records, err := enumerate(policy.ResultsDir)
	if err != nil {
		return err
	}

	report.TotalFiles = len(records)

	if policy.BackupDir != "" {
		if err := os.MkdirAll(policy.BackupDir, 0o755); err != nil {
			return fmt.Errorf("create backup dir: %w", err)
		}
	}

	manifest, err := loadManifest(policy.ResultsDir)
	if err != nil {
		return fmt.Errorf("load digest manifest: %w", err)
	}

	for _, rec := range records {
		digest, err := hashutil.ContentHashFile(rec.path)
		if err != nil {
			continue
		}

		report.Digests[rec.path] = digest

		if verifyEmbeddedDigest(manifest, rec.path, digest) {
			continue
		}

		report.CorruptedFiles = append(report.CorruptedFiles, rec.path)

		quarantined, err := quarantine(rec.path, policy.BackupDir)
		if err == nil {
			report.Quarantined = append(report.Quarantined, quarantined)
			delete(manifest, filepath.Base(rec.path))
		}
	}

	if err := saveManifest(policy.ResultsDir, manifest); err != nil {
		return fmt.Errorf("save digest manifest: %w", err)
	}

	return nil
}

// quarantine copies (never moves in place of the original delete — spec
// calls this "the only file move the system performs", implemented here as
// copy-then-remove so a failed copy never loses the original) src into
// backupDir with a `_corrupted_<unixts>` suffix.
func quarantine(src, backupDir string) (string, error) {
	if backupDir == "" {
		return "", fmt.Errorf("quarantine: no backup_dir configured")
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return "", err
	}

	ext := filepath.Ext(src)
	stem := filepath.Base(src[:len(src)-len(ext)])
	dest := filepath.Join(backupDir, fmt.Sprintf("%s_corrupted_%d%s", stem, time.Now().Unix(), ext))

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}

	if err := os.Remove(src); err != nil {
		return "", err
	}

	return dest, nil
}
