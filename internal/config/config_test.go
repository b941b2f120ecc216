package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thara/vela/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxSteps)
	assert.Equal(t, 0, cfg.MaxCallDepth)
	assert.Equal(t, 2.0, cfg.GCGrowth)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VELA_MAX_STEPS", "1000")
	t.Setenv("VELA_MAX_CALL_DEPTH", "64")
	t.Setenv("VELA_GC_GROWTH", "1.5")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MaxSteps)
	assert.Equal(t, 64, cfg.MaxCallDepth)
	assert.Equal(t, 1.5, cfg.GCGrowth)
}

func TestLoadYAMLOverridesEnv(t *testing.T) {
	t.Setenv("VELA_MAX_STEPS", "1000")
	t.Setenv("VELA_GC_GROWTH", "1.5")

	path := filepath.Join(t.TempDir(), "vela.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_steps: 5000\nmax_call_depth: 32\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.MaxSteps, "file value overrides env value")
	assert.Equal(t, 32, cfg.MaxCallDepth, "file value used where env left it zero")
	assert.Equal(t, 1.5, cfg.GCGrowth, "env value kept where the file left it zero")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
