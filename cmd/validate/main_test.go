package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_RejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log:\n  level: verbose\n"), 0644))

	err := run(configPath, filepath.Join(dir, "missing.txt"), "text/plain", false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config has 1 errors")
}

func TestRun_MissingInput(t *testing.T) {
	err := run("", filepath.Join(t.TempDir(), "missing.txt"), "text/plain", false, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
