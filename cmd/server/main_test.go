package main

import (
	"path/filepath"
	"testing"

	"docvalidator/config"
	"docvalidator/modelsync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_ReleasesSyncStateOnModelFailure(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Model.Path = filepath.Join(dir, "missing.onnx")
	cfg.Model.TokenizerPath = filepath.Join(dir, "missing.json")
	cfg.Sync.Enabled = true
	cfg.Sync.Bucket = "models"
	cfg.Sync.Key = "bert.onnx"
	cfg.Sync.Endpoint = "http://127.0.0.1:1"
	cfg.Sync.StatePath = filepath.Join(dir, "state.db")
	require.Empty(t, cfg.Validate())

	err = run(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load model")

	// bbolt holds an exclusive lock until closed; reopening proves run released it.
	state := &modelsync.StateStore{DBPath: cfg.Sync.StatePath}
	require.NoError(t, state.Init())
	require.NoError(t, state.Close())
}

func TestNewLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := newLogger(level)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}

	_, err := newLogger("verbose")
	assert.Error(t, err)
}
