package files

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"linka/internal/config"
	apierrors "linka/internal/errors"
)

// ErrTooLarge is returned when an upload exceeds the size limit
var ErrTooLarge = errors.New("file exceeds size limit")

// Manager stores raw uploads under the uploads directory
type Manager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{paths: paths, logger: logger.With(slog.String("component", "files"))}
}

// SaveUpload writes r to the upload path for id. At most maxBytes are
// accepted (0 means no limit); the file is written to a temporary name and
// renamed so readers never see a partial upload.
func (m *Manager) SaveUpload(id, name string, r io.Reader, maxBytes int64) (string, int64, error) {
	if err := m.EnsureDirectory(m.paths.UploadsDir); err != nil {
		return "", 0, err
	}
	dst := m.paths.UploadPath(id, SanitizeName(name))

	tmp, err := os.CreateTemp(m.paths.UploadsDir, ".upload-*")
	if err != nil {
		return "", 0, apierrors.NewStorageError("failed to create temporary file", err).WithContext("dir", m.paths.UploadsDir)
	}
	defer os.Remove(tmp.Name())

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()
		return "", 0, apierrors.NewStorageError("failed to write upload", err).WithContext("dataset_id", id)
	}
	if maxBytes > 0 && n > maxBytes {
		tmp.Close()
		return "", 0, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", 0, apierrors.NewStorageError("failed to sync upload", err).WithContext("dataset_id", id)
	}
	if err := tmp.Close(); err != nil {
		return "", 0, apierrors.NewStorageError("failed to close upload", err).WithContext("dataset_id", id)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", 0, apierrors.NewStorageError("failed to store upload", err).WithContext("path", dst)
	}

	m.logger.Info("Upload stored",
		slog.String("dataset_id", id),
		slog.String("path", dst),
		slog.Int64("size_bytes", n))
	return dst, n, nil
}

// DeleteUpload removes a stored upload. Missing files are not an error.
func (m *Manager) DeleteUpload(path string) error {
	if !config.Contains(m.paths.UploadsDir, path) {
		return fmt.Errorf("refusing to delete %s: outside uploads directory", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apierrors.NewStorageError("failed to delete upload", err).WithContext("path", path)
	}
	m.logger.Info("Upload deleted", slog.String("path", path))
	return nil
}

// EnsureDirectory creates a directory if it doesn't exist
func (m *Manager) EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return apierrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}
	return nil
}

// SanitizeName reduces a client supplied file name to a safe base name
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`<>:"|?*`, r):
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" {
		return "upload"
	}
	return name
}
