package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/plus3/bigspace/config"
	"github.com/plus3/bigspace/space"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetAfter removes keys a .env file may have put into the environment.
func unsetAfter(t *testing.T, keys ...string) {
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	grid, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, 2000.0, grid.CellEdge())
	assert.Equal(t, time.Second/60, cfg.TickInterval())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(config.EnvCellEdge, "500")
	t.Setenv(config.EnvTickRate, "30")
	t.Setenv(config.EnvStrict, "true")
	t.Setenv(config.EnvLogLevel, "debug")

	cfg, err := config.FromEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 500.0, cfg.CellEdgeLength)
	assert.Equal(t, 30, cfg.TickRate)
	assert.True(t, cfg.Strict)
	assert.Equal(t, ":9464", cfg.MetricsAddr)
}

func TestFromEnvReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BIGSPACE_BODIES=12\nBIGSPACE_SNAPSHOT_PATH=/tmp/world.msgpack\n"), 0o644))
	unsetAfter(t, config.EnvBodies, config.EnvSnapshotPath)

	cfg, err := config.FromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Bodies)
	assert.Equal(t, "/tmp/world.msgpack", cfg.SnapshotPath)
}

func TestEnvironmentWinsOverDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BIGSPACE_SEED=7\n"), 0o644))
	t.Setenv(config.EnvSeed, "99")

	cfg, err := config.FromEnv(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(99), cfg.Seed)
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		target error
	}{
		{"zero edge", func(c *config.Config) { c.CellEdgeLength = 0 }, space.ErrInvalidCellEdge},
		{"negative edge", func(c *config.Config) { c.CellEdgeLength = -1 }, space.ErrInvalidCellEdge},
		{"tick rate", func(c *config.Config) { c.TickRate = 0 }, config.ErrInvalidTickRate},
		{"log level", func(c *config.Config) { c.LogLevel = "loud" }, config.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.target)
		})
	}
}

func TestMalformedEnvValue(t *testing.T) {
	t.Setenv(config.EnvTickRate, "fast")

	_, err := config.FromEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, config.EnvTickRate)
}
