package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Paths contains the resolved application paths. It is the single source
// of truth for every file location.
type Paths struct {
	BaseDir      string
	DataDir      string
	UploadsDir   string
	LogsDir      string
	WebDir       string
	DatabaseFile string
}

// ResolvePaths turns the configured paths into absolute ones. An empty
// BaseDir means the directory of the running executable.
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		dir, err := executableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	dataDir := resolve(base, c.Paths.DataDir)
	db := c.Storage.SQLitePath
	if db != ":memory:" {
		db = resolve(dataDir, db)
	}

	return &Paths{
		BaseDir:      base,
		DataDir:      dataDir,
		UploadsDir:   filepath.Join(dataDir, DefaultUploadsDir),
		LogsDir:      resolve(base, c.Paths.LogsDir),
		WebDir:       resolve(base, c.Paths.WebDir),
		DatabaseFile: db,
	}, nil
}

func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.UploadsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UploadPath returns where the raw upload for a dataset is kept. The file
// name is "<id>_<original name>" so uploads can be reloaded after a restart.
func (p *Paths) UploadPath(id, name string) string {
	return filepath.Join(p.UploadsDir, id+"_"+filepath.Base(name))
}

// LogPath returns the path for a log file name
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}

// WebFilePath returns the path for a frontend asset
func (p *Paths) WebFilePath(name string) string {
	return filepath.Join(p.WebDir, name)
}

// Contains reports whether path lies inside dir
func Contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// LogPathResolution logs the resolved paths at startup
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("uploads_dir", p.UploadsDir),
		slog.String("logs_dir", p.LogsDir),
		slog.String("web_dir", p.WebDir),
		slog.String("database", p.DatabaseFile),
	)
}
