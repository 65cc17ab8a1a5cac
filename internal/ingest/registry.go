package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"linka/internal/dataprocessing"
)

// Source is one file handed to a parser
type Source struct {
	Name    string
	Reader  io.Reader
	Size    int64
	ModTime time.Time

	// RecordsPath is an optional JSONPath selecting the record array inside
	// a JSON document, for example "$.data.items"
	RecordsPath string
}

// Parser turns one file format into a dataset
type Parser interface {
	Parse(ctx context.Context, src Source) (*dataprocessing.Dataset, error)
}

// ParserFunc adapts a function to Parser
type ParserFunc func(ctx context.Context, src Source) (*dataprocessing.Dataset, error)

// Parse calls fn
func (fn ParserFunc) Parse(ctx context.Context, src Source) (*dataprocessing.Dataset, error) {
	return fn(ctx, src)
}

// Registry dispatches files to parsers by extension
type Registry struct {
	parsers map[string]Parser
	logger  *slog.Logger
}

// NewRegistry returns a registry with every built-in format registered
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		parsers: make(map[string]Parser),
		logger:  logger.With(slog.String("component", "ingest")),
	}
	r.Register("csv", ParserFunc(parseCSV))
	r.Register("txt", ParserFunc(parseTXT))
	r.Register("json", ParserFunc(parseJSON))
	r.Register("xml", ParserFunc(parseXML))
	r.Register("svg", ParserFunc(parseSVG))
	r.Register("xlsx", ParserFunc(parseXLSX))
	return r
}

// Register binds a parser to an extension, replacing any previous one
func (r *Registry) Register(ext string, p Parser) {
	r.parsers[normalizeExt(ext)] = p
}

// Supported lists the registered extensions in sorted order
func (r *Registry) Supported() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsSupported reports whether name has a registered extension
func (r *Registry) IsSupported(name string) bool {
	_, ok := r.parsers[FileType(name)]
	return ok
}

// Parse picks a parser from the source name and runs it
func (r *Registry) Parse(ctx context.Context, src Source) (*dataprocessing.Dataset, error) {
	fileType := FileType(src.Name)
	p, ok := r.parsers[fileType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(src.Name))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	ds, err := p.Parse(ctx, src)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to parse upload",
			slog.String("file", src.Name),
			slog.String("file_type", fileType),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("parse %s: %w", src.Name, err)
	}
	ds.FileType = fileType

	r.logger.InfoContext(ctx, "Parsed upload",
		slog.String("file", src.Name),
		slog.String("file_type", fileType),
		slog.Int("columns", len(ds.Columns)),
		slog.Int("rows", ds.RowCount()),
		slog.Duration("duration", time.Since(start)))
	return ds, nil
}

// ParseFile opens path and parses it
func (r *Registry) ParseFile(ctx context.Context, path string) (*dataprocessing.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return r.Parse(ctx, Source{
		Name:    filepath.Base(path),
		Reader:  f,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
}

// FileType returns the lowercase extension of name without the dot
func FileType(name string) string {
	return normalizeExt(filepath.Ext(name))
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
