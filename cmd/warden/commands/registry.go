package commands

import (
	"fmt"

	"github.com/wardenscan/warden/internal/analyzer"
	"github.com/wardenscan/warden/internal/analyzers/comments"
	"github.com/wardenscan/warden/internal/analyzers/complexity"
	"github.com/wardenscan/warden/internal/analyzers/duplicate"
	"github.com/wardenscan/warden/internal/analyzers/mergeconflict"
	"github.com/wardenscan/warden/internal/analyzers/typo"
)

// buildRegistry registers every built-in analyzer. duplicate.New is
// fallible (it builds an LSH index), so this can fail even though the
// other constructors can't.
func buildRegistry() (*analyzer.Registry, error) {
	reg := analyzer.NewRegistry()

	dup, err := duplicate.New()
	if err != nil {
		return nil, fmt.Errorf("build duplicate analyzer: %w", err)
	}

	analyzers := []analyzer.Analyzer{
		mergeconflict.New(),
		complexity.New(),
		comments.New(),
		typo.New(),
		dup,
	}

	for _, a := range analyzers {
		if err := reg.Register(a); err != nil {
			return nil, fmt.Errorf("register %s: %w", a.Name(), err)
		}
	}

	return reg, nil
}
