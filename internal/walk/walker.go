// Package walk enumerates files under a set of roots for the analysis
// engine, honoring include/exclude patterns, a size ceiling, and a
// no-symlink-escape policy.
package walk

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// alwaysAllowedDotfiles are dotfiles kept even though they start with '.'.
var alwaysAllowedDotfiles = map[string]bool{
	".gitignore":    true,
	".dockerignore": true,
}

// Options configures a single walk.
type Options struct {
	// ExcludePatterns are glob or plain substring patterns matched against
	// the full path as one string, not against its individual components;
	// a match excludes the file.
	ExcludePatterns []string
	// IncludeExtensions is a set of allowed extensions (with leading dot,
	// e.g. ".go"). Empty means no extension filtering.
	IncludeExtensions []string
	// MaxFileSizeBytes is the hard upper bound; files above it are skipped.
	// Zero means unlimited.
	MaxFileSizeBytes int64
	// FollowSymlinks enables following symlinks. Off by default: a symlink
	// target outside its root is never yielded when this is false.
	FollowSymlinks bool
}

// Walker enumerates files under a list of roots.
type Walker struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Walker with the given options. A nil logger falls back to
// slog.Default so callers in tests don't have to wire one up.
func New(opts Options, logger *slog.Logger) *Walker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Walker{opts: opts, logger: logger}
}

// Walk returns canonicalized absolute paths under roots, in deterministic
// (lexicographic per directory) order. A root may be a file or a directory.
// Errors reading one directory entry are logged and that entry is skipped;
// the walk continues over the rest of the tree.
func (w *Walker) Walk(roots []string) []string {
	var out []string

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			w.logger.Warn("resolve root", "root", root, "error", err)

			continue
		}

		info, err := os.Lstat(abs)
		if err != nil {
			w.logger.Warn("stat root", "root", abs, "error", err)

			continue
		}

		switch {
		case info.Mode().IsRegular():
			if w.shouldYield(abs, info) {
				out = append(out, abs)
			}
		case info.IsDir():
			out = append(out, w.walkDir(abs)...)
		default:
			w.logger.Warn("skip non-regular root", "root", abs)
		}
	}

	return out
}

// walkDir enumerates a single directory root.
func (w *Walker) walkDir(root string) []string {
	var out []string

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("walk entry", "path", path, "error", err)

			return nil // Skip the entry, keep walking.
		}

		if d.IsDir() {
			return w.handleDir(path, d, root)
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			w.logger.Warn("stat entry", "path", path, "error", infoErr)

			return nil
		}

		if info.Mode()&fs.ModeSymlink != 0 {
			resolved, ok := w.resolveSymlink(path, root)
			if !ok {
				return nil
			}

			path = resolved

			resolvedInfo, statErr := os.Stat(path)
			if statErr != nil {
				return nil
			}

			info = resolvedInfo
		}

		if w.shouldYield(path, info) {
			out = append(out, path)
		}

		return nil
	})
	if walkErr != nil {
		w.logger.Warn("walk root", "root", root, "error", walkErr)
	}

	sort.Strings(out)

	return out
}

// handleDir decides whether to descend into a directory.
func (w *Walker) handleDir(path string, d fs.DirEntry, root string) error {
	if path == root {
		return nil
	}

	name := d.Name()
	if w.isDotfile(name) || w.matchesExclude(path) {
		return filepath.SkipDir
	}

	return nil
}

// resolveSymlink follows a symlink when FollowSymlinks is enabled and the
// target stays within root; returns ok=false otherwise.
func (w *Walker) resolveSymlink(path, root string) (string, bool) {
	if !w.opts.FollowSymlinks {
		return "", false
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.logger.Warn("resolve symlink", "path", path, "error", err)

		return "", false
	}

	rel, err := filepath.Rel(root, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}

	return target, true
}

// shouldYield applies the dotfile, exclude, size, and extension filters to a
// regular file.
func (w *Walker) shouldYield(path string, info fs.FileInfo) bool {
	name := filepath.Base(path)

	if w.isDotfile(name) {
		return false
	}

	if w.matchesExclude(path) {
		return false
	}

	if w.opts.MaxFileSizeBytes > 0 && info.Size() > w.opts.MaxFileSizeBytes {
		return false
	}

	return w.matchesIncludeExtensions(path)
}

func (w *Walker) isDotfile(name string) bool {
	return strings.HasPrefix(name, ".") && !alwaysAllowedDotfiles[name]
}

func (w *Walker) matchesExclude(path string) bool {
	for _, pattern := range w.opts.ExcludePatterns {
		if matchPattern(pattern, path) {
			return true
		}
	}

	return false
}

func (w *Walker) matchesIncludeExtensions(path string) bool {
	if len(w.opts.IncludeExtensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, allowed := range w.opts.IncludeExtensions {
		if ext == allowed {
			return true
		}
	}

	return false
}

// matchPattern matches a glob pattern against a path; when the glob does not
// match (or is not a valid glob), it falls back to plain substring matching
// of the pattern with any leading "**/" and trailing "/**" trimmed (mirrors
// the teacher's source's lenient exclude-pattern handling).
func matchPattern(pattern, path string) bool {
	ok, err := doublestar.Match(pattern, path)
	if err == nil && ok {
		return true
	}

	trimmed := strings.TrimPrefix(strings.TrimSuffix(pattern, "/**"), "**/")

	return strings.Contains(path, trimmed)
}
