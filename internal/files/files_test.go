package files

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linka/internal/config"
	apierrors "linka/internal/errors"
)

func testPaths(t *testing.T) *config.Paths {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	paths, err := cfg.ResolvePaths()
	require.NoError(t, err)
	return paths
}

func TestManager_SaveUpload(t *testing.T) {
	paths := testPaths(t)
	m := NewManager(paths, nil)
	id := uuid.New().String()

	path, n, err := m.SaveUpload(id, `C:\Users\me\sales.csv`, strings.NewReader("a,b\n1,2\n"), 1024)
	require.NoError(t, err)

	assert.Equal(t, int64(8), n)
	assert.Equal(t, filepath.Join(paths.UploadsDir, id+"_sales.csv"), path)
	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(body))

	// no temporary files left behind
	entries, err := os.ReadDir(paths.UploadsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestManager_SaveUploadTooLarge(t *testing.T) {
	paths := testPaths(t)
	m := NewManager(paths, nil)

	_, _, err := m.SaveUpload(uuid.New().String(), "big.csv", strings.NewReader(strings.Repeat("x", 11)), 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(paths.UploadsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_DeleteUpload(t *testing.T) {
	paths := testPaths(t)
	m := NewManager(paths, nil)

	path, _, err := m.SaveUpload(uuid.New().String(), "a.json", strings.NewReader("[]"), 0)
	require.NoError(t, err)
	require.FileExists(t, path)

	require.NoError(t, m.DeleteUpload(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, m.DeleteUpload(path), "deleting twice is fine")

	assert.Error(t, m.DeleteUpload(filepath.Join(paths.DataDir, "linka.db")))
}

func TestManager_StorageErrorsCarryPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := NewManager(testPaths(t), nil).EnsureDirectory(filepath.Join(blocker, "uploads"))
	require.Error(t, err)

	var appErr *apierrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apierrors.ErrTypeStorage, appErr.Type)
	assert.Equal(t, filepath.Join(blocker, "uploads"), appErr.Context["path"])
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"report.csv":       "report.csv",
		"../../etc/passwd": "passwd",
		`dir\sub\data.xml`: "data.xml",
		"what?.json":       "what_.json",
		"tab\tname.txt":    "tabname.txt",
		"":                 "upload",
		"   ":              "upload",
		"/":                "upload",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeName(in), in)
	}
}

func TestDiscovery_FindUploads(t *testing.T) {
	dir := t.TempDir()
	older := uuid.New().String()
	newer := uuid.New().String()

	write := func(name string, mod time.Time) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, os.Chtimes(path, mod, mod))
	}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	write(newer+"_b.json", base.Add(time.Hour))
	write(older+"_a_file.csv", base)
	write(uuid.New().String()+"_notes.md", base)
	write("not-a-uuid_x.csv", base)
	write(".upload-123", base)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	uploads, err := NewDiscovery(dir).FindUploads([]string{"csv", ".json"})
	require.NoError(t, err)
	require.Len(t, uploads, 2)

	assert.Equal(t, older, uploads[0].ID)
	assert.Equal(t, "a_file.csv", uploads[0].Name)
	assert.Equal(t, newer, uploads[1].ID)
	assert.Equal(t, int64(1), uploads[1].Size)
}

func TestDiscovery_MissingDirectory(t *testing.T) {
	uploads, err := NewDiscovery(filepath.Join(t.TempDir(), "nope")).FindUploads(nil)
	assert.NoError(t, err)
	assert.Empty(t, uploads)
}
