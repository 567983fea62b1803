package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultOutputFile, cfg.OutputFile)
	assert.Equal(t, 2.0, cfg.DebounceSeconds)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	env := "GOOGLE_API_KEY=file-key\nGEMINI_MODEL=gemini-pro\nDEBOUNCE_SECONDS=0.5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "gemini-pro", cfg.Model)
	assert.Equal(t, 0.5, cfg.DebounceSeconds)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_MODEL=from-file\n"), 0o644))
	t.Setenv("GEMINI_MODEL", "from-env")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model)
}

func TestLoad_InvalidDebounceFallsBack(t *testing.T) {
	t.Setenv("DEBOUNCE_SECONDS", "-3")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.DebounceSeconds)
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{OutputFile: "/tmp/out/LIVE_ARCHITECTURE.md"}

	assert.Equal(t, filepath.Join("/tmp/out", "UMBRA_KNOWLEDGE.md"), cfg.KnowledgeFile())
	assert.Equal(t, filepath.Join("/tmp/out", "dashboard.html"), cfg.DashboardFile())
}

func TestRequireAPIKey(t *testing.T) {
	assert.Error(t, (&Config{}).RequireAPIKey())
	assert.NoError(t, (&Config{APIKey: "k"}).RequireAPIKey())
}
