package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FreePeak/track-commands-ws/internal/config"
)

func TestNewLoggerCreatesLogDirectory(t *testing.T) {
	cfg := config.Default()
	cfg.LogDir = filepath.Join(t.TempDir(), "nested", "logs")
	cfg.LogFile = "server.log"

	logger, err := newLogger(cfg)
	require.NoError(t, err)

	logger.Info("Server started on localhost:8765")
	_ = logger.Sync()

	data, err := os.ReadFile(cfg.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Server started on localhost:8765")
}

func TestNewLoggerWithoutFile(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = ""

	logger, err := newLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
