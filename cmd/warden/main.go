// Command warden is a CLI static-analysis engine: it walks a source tree,
// dispatches files to a registry of analyzers, validates and scores
// findings, and routes low-confidence ones to a review queue.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/wardenscan/warden/cmd/warden/commands"
	"github.com/wardenscan/warden/internal/engerrs"
	"github.com/wardenscan/warden/internal/orchestrator"
	"github.com/wardenscan/warden/pkg/version"
)

// Exit codes beyond the generic 0 (success) / 1 (unclassified failure),
// one per failure mode an operator needs to script against distinctly.
const (
	exitCodeConfigInvalid = 3
	exitCodeCachePersist  = 4
	exitCodeIO            = 5
)

func main() {
	version.InitBinaryVersion()
	orchestrator.ToolVersion = version.Version

	if err := commands.NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "warden:", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor classifies err against the engine's sentinel errors so
// scripts driving warden can distinguish a bad config from a transient
// cache-persist failure from a plain I/O problem, rather than treating
// every non-zero exit the same.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, engerrs.ErrConfigInvalid), errors.Is(err, engerrs.ErrConfigSchemaFail):
		return exitCodeConfigInvalid
	case errors.Is(err, engerrs.ErrCachePersistFailed):
		return exitCodeCachePersist
	case errors.Is(err, engerrs.ErrIO), isPathError(err):
		return exitCodeIO
	default:
		return 1
	}
}

func isPathError(err error) bool {
	var pathErr *fs.PathError

	return errors.As(err, &pathErr)
}
