package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Verify)
	assert.Empty(t, cfg.TreeFiles)
	assert.True(t, cfg.IsDefaultInitialState())
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "canopy:transitions", cfg.RedisChannel)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CANOPY_LOG_LEVEL", "debug")
	t.Setenv("CANOPY_LOG_FORMAT", "json")
	t.Setenv("CANOPY_VERIFY", "true")
	t.Setenv("CANOPY_TREE_FILES", "menus.yaml,game.yaml")
	t.Setenv("CANOPY_INITIAL_STATE", "menu")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Verify)
	assert.Equal(t, []string{"menus.yaml", "game.yaml"}, cfg.TreeFiles)
	assert.Equal(t, "menu", cfg.InitialState)
	assert.False(t, cfg.IsDefaultInitialState())
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CANOPY_REDIS_ADDR=localhost:6390\nCANOPY_HTTP_ADDR=:9999\n"), 0o600))
	t.Setenv("CANOPY_HTTP_ADDR", ":7000")
	t.Cleanup(func() { os.Unsetenv("CANOPY_REDIS_ADDR") })

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:6390", cfg.RedisAddr)
	assert.Equal(t, ":7000", cfg.HTTPAddr, "existing variables win over the file")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"Bad level", "CANOPY_LOG_LEVEL", "chatty"},
		{"Bad format", "CANOPY_LOG_FORMAT", "xml"},
		{"Bad bool", "CANOPY_VERIFY", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
