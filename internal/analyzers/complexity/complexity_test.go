package complexity_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenscan/warden/internal/analyzers/complexity"
)

func funcWithDecisions(name string, n int) string {
	var b strings.Builder

	b.WriteString("func " + name + "() {\n")

	for i := 0; i < n; i++ {
		b.WriteString("if x { }\n")
	}

	b.WriteString("}\n")

	return b.String()
}

func TestAnalyzer_SimpleFunctionNotFlagged(t *testing.T) {
	a := complexity.New()

	findings, err := a.Analyze("f.go", []byte(funcWithDecisions("small", 2)), 0)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestAnalyzer_ComplexFunctionFlagged(t *testing.T) {
	a := complexity.NewWithThreshold(5)

	findings, err := a.Analyze("f.go", []byte(funcWithDecisions("tooComplex", 10)), 0)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "high-cyclomatic-complexity", findings[0].Rule)
	assert.Contains(t, findings[0].Message, "tooComplex")
}

func TestAnalyzer_ZeroOrNegativeThresholdFallsBackToDefault(t *testing.T) {
	a := complexity.NewWithThreshold(0)

	assert.Equal(t, complexity.DefaultThreshold, a.Threshold)
}

func TestAnalyzer_MultipleFunctionsEachEvaluatedIndependently(t *testing.T) {
	a := complexity.NewWithThreshold(3)

	content := funcWithDecisions("simple", 1) + "\n" + funcWithDecisions("complicated", 8)

	findings, err := a.Analyze("f.go", []byte(content), 0)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "complicated")
}

func TestAnalyzer_SupportsSourceExtensionsOnly(t *testing.T) {
	a := complexity.New()

	assert.True(t, a.Supports("main.go"))
	assert.True(t, a.Supports("script.py"))
	assert.False(t, a.Supports("README.md"))
}

func TestAnalyzer_NonStreamingCapable(t *testing.T) {
	a := complexity.New()

	assert.False(t, a.SupportsStreaming())
}
