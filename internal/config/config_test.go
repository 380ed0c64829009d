package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenscan/warden/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "warden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	return path
}

func TestLoad_DefaultsApplyWithNoFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.Validation.Enabled)
	assert.Equal(t, 0.8, cfg.Validation.AcceptThreshold)
	assert.True(t, cfg.Cache.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, "general:\n  max_workers: 4\nvalidation:\n  accept_threshold: 0.9\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.General.MaxWorkers)
	assert.Equal(t, 0.9, cfg.Validation.AcceptThreshold)
}

func TestLoad_RejectsWrongTypeViaSchema(t *testing.T) {
	path := writeConfig(t, "general:\n  max_workers: \"not-a-number\"\n")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsBadThresholdOrdering(t *testing.T) {
	path := writeConfig(t, "validation:\n  accept_threshold: 0.2\n  review_threshold: 0.5\n  dismiss_threshold: 0.8\n")

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrInvalidThresholdOrdering)
}

func TestLoad_RejectsNegativeWorkers(t *testing.T) {
	path := writeConfig(t, "general:\n  max_workers: -1\n")

	_, err := config.Load(path)
	assert.ErrorIs(t, err, config.ErrInvalidWorkers)
}

func TestConfig_HashIsStableAcrossEqualConfigs(t *testing.T) {
	a, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	b, err := config.Load(filepath.Join(t.TempDir(), "also-missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 32)
}

func TestConfig_HashChangesWithAnalysisAffectingField(t *testing.T) {
	a, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	path := writeConfig(t, "general:\n  max_file_size_bytes: 999\n")

	b, err := config.Load(path)
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestConfig_HashUnaffectedByOperationalField(t *testing.T) {
	a, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	path := writeConfig(t, "general:\n  watch: true\nlogging:\n  level: debug\n")

	b, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, a.Hash(), b.Hash())
}
