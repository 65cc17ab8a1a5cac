package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = base

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, base, paths.BaseDir)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "data", "uploads"), paths.UploadsDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(base, "data", "linka.db"), paths.DatabaseFile)
	assert.Equal(t, filepath.Join(base, "data", "uploads", "abc_sales.csv"), paths.UploadPath("abc", "../sales.csv"))
}

func TestResolvePaths_AbsoluteAndMemory(t *testing.T) {
	elsewhere := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Paths.DataDir = elsewhere
	cfg.Storage.SQLitePath = ":memory:"

	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, elsewhere, paths.DataDir)
	assert.Equal(t, ":memory:", paths.DatabaseFile)
}

func TestResolvePaths_DefaultsToExecutableDir(t *testing.T) {
	paths, err := Default().ResolvePaths()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(paths.BaseDir))
}

func TestEnsureDirectories(t *testing.T) {
	cfg := Default()
	cfg.Paths.BaseDir = t.TempDir()
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.DataDir, paths.UploadsDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestContains(t *testing.T) {
	dir := filepath.Join("srv", "data")
	assert.True(t, Contains(dir, filepath.Join(dir, "uploads", "a.csv")))
	assert.False(t, Contains(dir, filepath.Join("srv", "other")))
	assert.False(t, Contains(dir, filepath.Join(dir, "..", "x")))
}
