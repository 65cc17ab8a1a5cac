package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Upload is a stored upload found on disk
type Upload struct {
	ID      string
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Discovery finds stored uploads
type Discovery struct {
	dir string
}

// NewDiscovery creates a new file discovery instance for an uploads directory
func NewDiscovery(dir string) *Discovery {
	return &Discovery{dir: dir}
}

// FindUploads returns every "<uuid>_<name>" file whose extension is
// allowed, oldest first. A missing directory yields no uploads.
func (d *Discovery) FindUploads(extensions []string) ([]Upload, error) {
	entries, err := os.ReadDir(d.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	var uploads []Upload
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, name, ok := splitUploadName(entry.Name())
		if !ok {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if len(allowed) > 0 && !allowed[ext] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		uploads = append(uploads, Upload{
			ID:      id,
			Name:    name,
			Path:    filepath.Join(d.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(uploads, func(i, j int) bool {
		if uploads[i].ModTime.Equal(uploads[j].ModTime) {
			return uploads[i].ID < uploads[j].ID
		}
		return uploads[i].ModTime.Before(uploads[j].ModTime)
	})
	return uploads, nil
}

// splitUploadName splits "<uuid>_<name>"
func splitUploadName(file string) (string, string, bool) {
	id, name, ok := strings.Cut(file, "_")
	if !ok || name == "" {
		return "", "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", "", false
	}
	return id, name, true
}
