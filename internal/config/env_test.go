package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEnvOverrides_ProviderAliasNormalized(t *testing.T) {
	t.Setenv("CORTEX_PROVIDER", "Anthropic")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "claude", cfg.LLM.Provider)
}

func TestApplyEnvOverrides_CacheTuning(t *testing.T) {
	t.Setenv("CORTEX_CACHE_MAX_ENTRIES", "750")
	t.Setenv("CORTEX_CACHE_SIMILARITY_THRESHOLD", "0.91")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, 750, cfg.Cache.MaxEntries)
	assert.InDelta(t, 0.91, cfg.Cache.SimilarityThreshold, 1e-9)
}

func TestApplyEnvOverrides_IgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CORTEX_CACHE_MAX_ENTRIES", "lots")

	cfg := DefaultConfig()
	before := cfg.Cache.MaxEntries
	ApplyEnvOverrides(cfg)

	assert.Equal(t, before, cfg.Cache.MaxEntries)
}

func TestLoadDotEnv_SetsOnlyUnsetVariables(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"# comment\n"+
			"CORTEX_TEST_FROM_FILE=file-value\n"+
			"CORTEX_TEST_PRESET=file-value\n"+
			"MALFORMED LINE\n",
	), 0600))

	t.Setenv("CORTEX_TEST_PRESET", "shell-value")
	t.Setenv("CORTEX_TEST_FROM_FILE", "")
	os.Unsetenv("CORTEX_TEST_FROM_FILE")

	require.NoError(t, LoadDotEnv(envPath))

	assert.Equal(t, "file-value", os.Getenv("CORTEX_TEST_FROM_FILE"))
	assert.Equal(t, "shell-value", os.Getenv("CORTEX_TEST_PRESET"))
}

func TestLoadDotEnv_MissingFileIsNotAnError(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestSetDotEnvValue_UpsertsAndPreservesOtherLines(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")

	require.NoError(t, SetDotEnvValue(envPath, "FIRST_KEY", "one"))
	require.NoError(t, SetDotEnvValue(envPath, "SECOND_KEY", "two"))
	require.NoError(t, SetDotEnvValue(envPath, "FIRST_KEY", "updated"))

	data, err := os.ReadFile(envPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "FIRST_KEY=updated\n")
	assert.Contains(t, string(data), "SECOND_KEY=two\n")
	assert.NotContains(t, string(data), "FIRST_KEY=one")

	info, err := os.Stat(envPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
