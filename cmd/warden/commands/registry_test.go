package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRegistry_RegistersAllBuiltinAnalyzers(t *testing.T) {
	reg, err := buildRegistry()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"merge-conflict", "complexity", "stale-comment-tags", "typo", "near-duplicate"}, reg.Names())

	applicable := reg.Applicable("main.go")

	names := make(map[string]bool)
	for _, a := range applicable {
		names[a.Name()] = true
	}

	assert.True(t, names["merge-conflict"] || names["complexity"] || names["stale-comment-tags"] || names["typo"] || names["near-duplicate"],
		"expected at least one built-in analyzer to apply to a .go file, got %v", names)
}

func TestDefaultReviewers_NonEmpty(t *testing.T) {
	reviewers := defaultReviewers()
	assert.NotEmpty(t, reviewers)
}
