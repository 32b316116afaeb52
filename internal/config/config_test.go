package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "TASK.md", cfg.Task.File)
	assert.Equal(t, 80_000, cfg.Budget.CapacityTokens)
	assert.Equal(t, 0.80, cfg.Budget.WarnFraction)
	assert.Equal(t, 0.95, cfg.Budget.CriticalFraction)
	assert.Equal(t, 5, cfg.Thrash.RepeatThreshold)
	assert.Equal(t, 3, cfg.Thrash.GutterThreshold)
	assert.Equal(t, 300, cfg.Test.TimeoutSeconds)
	assert.Equal(t, "127.0.0.1:8933", cfg.Address())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(StateDir(root), 0o755))
	content := `
task:
  file: GOALS.md
budget:
  capacity_tokens: 120000
api:
  enabled: true
  port: 9000
`
	require.NoError(t, os.WriteFile(ConfigPath(root), []byte(content), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, "GOALS.md", cfg.Task.File)
	assert.Equal(t, 120_000, cfg.Budget.CapacityTokens)
	assert.True(t, cfg.API.Enabled)
	assert.Equal(t, "127.0.0.1:9000", cfg.Address())
	// Untouched sections keep defaults.
	assert.Equal(t, 5, cfg.Thrash.RepeatThreshold)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(StateDir(root), 0o755))
	t.Setenv("RALPH_TEST_TOKEN", "secret-token")
	content := "handoff:\n  url: https://example.test/rotate\n  token: ${RALPH_TEST_TOKEN}\n"
	require.NoError(t, os.WriteFile(ConfigPath(root), []byte(content), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Handoff.Token)
}

func TestLoad_MalformedFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(StateDir(root), 0o755))
	require.NoError(t, os.WriteFile(ConfigPath(root), []byte("task: [broken"), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()

	cfg := DefaultConfig()
	cfg.Task.File = "WORK.md"
	cfg.Budget.CapacityTokens = 50_000
	require.NoError(t, cfg.Save(root))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "WORK.md", loaded.Task.File)
	assert.Equal(t, 50_000, loaded.Budget.CapacityTokens)
}

func TestTaskPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/work", "TASK.md"), cfg.TaskPath("/work"))

	cfg.Task.File = "/abs/TASK.md"
	assert.Equal(t, "/abs/TASK.md", cfg.TaskPath("/work"))
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/w/.ralph", StateDir("/w"))
	assert.Equal(t, "/w/.ralph/config.yaml", ConfigPath("/w"))
	assert.Equal(t, "/w/.ralph/logs/ralph.log", DefaultConfig().LogPath("/w"))
}
