package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taquin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
log_level: debug
max_upload_mb: 4
session_ttl: 30m
`), 0o600))
	t.Setenv("PORT", "7070")
	t.Setenv("GCP_PROJECT_ID", "my-project")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port, "environment wins over the file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, int64(4), cfg.MaxUploadMB)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "my-project", cfg.ProjectID)
	assert.Equal(t, defaultModel, cfg.Model)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [oops"), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	t.Setenv("MAX_UPLOAD_MB", "many")
	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestFlagsOverrideInvalidEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	cfg, err := LoadConfig("")
	require.NoError(t, err, "validation waits for the flags")
	assert.Error(t, cfg.Validate())

	cmd := newRootCmd()
	_, err = resolveConfig(cmd)
	assert.ErrorContains(t, err, "log level")

	cmd = newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "debug", "-p", "9191"}))
	cfg, err = resolveConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "9191", cfg.Port)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.LogLevel = "loud"
	cfg.MaxUploadMB = 0
	cfg.SessionTTL = -time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
	assert.Contains(t, err.Error(), "max upload")
	assert.Contains(t, err.Error(), "session ttl")
}
