package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"linka/internal/config"
	"linka/internal/dataprocessing"
	"linka/internal/exporter"
	"linka/internal/files"
	"linka/internal/infrastructure"
	"linka/internal/ingest"
	ws "linka/internal/websocket"
	"linka/pkg/contracts/domain"
	"linka/pkg/contracts/events"
)

// datasetEntry is one loaded upload. rows hold the cells as parsed plus any
// derived columns; resolved is rows tagged with the current classification.
type datasetEntry struct {
	info           domain.DatasetInfo
	path           string
	rows           []dataprocessing.Row
	forced         []string
	overrides      []string
	classification dataprocessing.Classification
	resolved       []dataprocessing.Row
}

// reclassify recomputes the cached classification and the resolved rows.
// Callers hold the service lock.
func (e *datasetEntry) reclassify() {
	force := append(append([]string{}, e.forced...), e.overrides...)
	e.classification = dataprocessing.Classify(e.info.Columns, e.rows, dataprocessing.ClassifyOptions{ForceCategorical: force})
	e.resolved = e.classification.Resolve(e.rows)
	e.info.RowCount = len(e.rows)
}

func (e *datasetEntry) hasColumn(column string) bool {
	for _, c := range e.info.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// TransformResult describes the columns a transform added
type TransformResult struct {
	Dataset        domain.DatasetInfo            `json:"dataset"`
	Derived        []string                      `json:"derived_columns"`
	Applied        bool                          `json:"applied"`
	Classification dataprocessing.Classification `json:"classification"`
}

// QueryResult is one table page plus the metadata clients render it with
type QueryResult struct {
	dataprocessing.Page
	Columns        []string                      `json:"columns"`
	Classification dataprocessing.Classification `json:"classification"`
}

// AggregateRequest selects a group-by reduction
type AggregateRequest struct {
	GroupBy     string                       `json:"group_by" validate:"required"`
	ValueColumn string                       `json:"value_column" validate:"required"`
	Function    dataprocessing.AggregateFunc `json:"function" validate:"required,oneof=sum average max min count"`
}

// ChartRequest plots y columns against x. When Query is set the chart uses
// the filtered and sorted table rows instead of every row.
type ChartRequest struct {
	X      string                     `json:"x" validate:"required"`
	Y      []string                   `json:"y" validate:"required,min=1,dive,required"`
	Filter dataprocessing.ChartFilter `json:"filter"`
	Query  *dataprocessing.TableQuery `json:"query,omitempty"`
}

// DatasetService keeps parsed uploads in memory and runs table, transform
// and chart operations against them
type DatasetService struct {
	upload     config.UploadConfig
	uploadsDir string
	files      *files.Manager
	registry   *ingest.Registry
	exporter   *exporter.CSVWriter
	publisher  ws.Publisher
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger

	mu       sync.RWMutex
	datasets map[string]*datasetEntry
	now      func() time.Time
}

// NewDatasetService creates a dataset service. publisher and metrics may be nil.
func NewDatasetService(upload config.UploadConfig, paths *config.Paths, registry *ingest.Registry, publisher ws.Publisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DatasetService {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = ingest.NewRegistry(logger)
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	logger = logger.With(slog.String("service", "datasets"))

	logger.Info("DatasetService initialized",
		slog.String("uploads_dir", paths.UploadsDir),
		slog.Int64("max_upload_bytes", upload.MaxSizeBytes),
		slog.Any("allowed_extensions", upload.AllowedExtensions))

	return &DatasetService{
		upload:     upload,
		uploadsDir: paths.UploadsDir,
		files:      files.NewManager(paths, logger),
		registry:   registry,
		exporter:   exporter.NewCSVWriter(logger),
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		datasets:   make(map[string]*datasetEntry),
		now:        time.Now,
	}
}

// allowed reports whether name has an extension that is both configured
// and parseable
func (s *DatasetService) allowed(name string) bool {
	if !s.registry.IsSupported(name) {
		return false
	}
	if len(s.upload.AllowedExtensions) == 0 {
		return true
	}
	ext := ingest.FileType(name)
	for _, a := range s.upload.AllowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}

// Upload stores r under a new dataset id, parses it and classifies its
// columns
func (s *DatasetService) Upload(ctx context.Context, name string, r io.Reader) (*domain.DatasetInfo, error) {
	ctx, span := infrastructure.StartSpan(ctx, "datasets.upload")
	defer span.End()
	start := time.Now()
	fileType := ingest.FileType(name)

	info, err := s.store(ctx, name, r)
	s.metrics.RecordUpload(ctx, fileType, info.RowCount, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "Upload rejected",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.metrics.RecordDatasetCount(ctx, 1)
	s.publisher.Publish(ctx, events.MessageTypeDatasetUploaded, events.DatasetEvent{
		DatasetID: info.ID,
		Name:      info.Name,
		FileType:  info.FileType,
		RowCount:  info.RowCount,
		Columns:   info.Columns,
	})
	return &info, nil
}

func (s *DatasetService) store(ctx context.Context, name string, r io.Reader) (domain.DatasetInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.DatasetInfo{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if !s.allowed(name) {
		return domain.DatasetInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}

	id := uuid.NewString()
	path, size, err := s.files.SaveUpload(id, name, r, s.upload.MaxSizeBytes)
	if err != nil {
		if errors.Is(err, files.ErrTooLarge) {
			return domain.DatasetInfo{}, fmt.Errorf("%w: %v", ErrFileTooLarge, err)
		}
		return domain.DatasetInfo{}, err
	}

	entry, err := s.load(ctx, files.Upload{ID: id, Name: name, Path: path, Size: size, ModTime: s.now()})
	if err != nil {
		if delErr := s.files.DeleteUpload(path); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to remove rejected upload", slog.String("error", delErr.Error()))
		}
		return domain.DatasetInfo{}, err
	}
	if !s.upload.KeepFiles {
		if err := s.files.DeleteUpload(path); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove upload", slog.String("error", err.Error()))
		}
		entry.path = ""
	}

	s.mu.Lock()
	s.datasets[id] = entry
	s.mu.Unlock()
	return entry.info, nil
}

// load parses a stored upload into a classified entry
func (s *DatasetService) load(ctx context.Context, up files.Upload) (*datasetEntry, error) {
	f, err := os.Open(up.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	ds, err := s.registry.Parse(ctx, ingest.Source{Name: up.Name, Reader: f, Size: up.Size, ModTime: up.ModTime})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpload, err)
	}

	entry := &datasetEntry{
		info: domain.DatasetInfo{
			ID:         up.ID,
			Name:       up.Name,
			FileType:   ds.FileType,
			Size:       up.Size,
			Columns:    append([]string{}, ds.Columns...),
			UploadedAt: up.ModTime.UTC(),
		},
		path:   up.Path,
		rows:   ds.Rows,
		forced: ds.ForceCategorical,
	}
	entry.reclassify()
	return entry, nil
}

// Restore reloads every upload kept on disk. Files that no longer parse are
// logged and skipped.
func (s *DatasetService) Restore(ctx context.Context) (int, error) {
	uploads, err := files.NewDiscovery(s.uploadsDir).FindUploads(s.upload.AllowedExtensions)
	if err != nil {
		return 0, fmt.Errorf("failed to scan uploads: %w", err)
	}
	if len(uploads) == 0 {
		return 0, nil
	}

	entries := make([]*datasetEntry, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, up := range uploads {
		g.Go(func() error {
			entry, err := s.load(gctx, up)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.WarnContext(gctx, "Skipping stored upload",
					slog.String("file", up.Path),
					slog.String("error", err.Error()))
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	restored := 0
	s.mu.Lock()
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		if _, exists := s.datasets[entry.info.ID]; !exists {
			s.datasets[entry.info.ID] = entry
			restored++
		}
	}
	s.mu.Unlock()

	s.metrics.RecordDatasetCount(ctx, int64(restored))
	s.logger.InfoContext(ctx, "Restored datasets",
		slog.Int("restored", restored),
		slog.Int("found", len(uploads)))
	return restored, nil
}

func (s *DatasetService) entry(id string) (*datasetEntry, error) {
	e, ok := s.datasets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return e, nil
}

// Get returns dataset metadata
func (s *DatasetService) Get(id string) (*domain.DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	info := e.info
	return &info, nil
}

// List returns every dataset, oldest upload first
func (s *DatasetService) List() []domain.DatasetInfo {
	s.mu.RLock()
	out := make([]domain.DatasetInfo, 0, len(s.datasets))
	for _, e := range s.datasets {
		out = append(out, e.info)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Delete removes a dataset and its stored file
func (s *DatasetService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	e, err := s.entry(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	delete(s.datasets, id)
	s.mu.Unlock()

	if e.path != "" {
		if err := s.files.DeleteUpload(e.path); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove stored upload",
				slog.String("dataset_id", id),
				slog.String("error", err.Error()))
		}
	}

	s.metrics.RecordDatasetCount(ctx, -1)
	s.publisher.Publish(ctx, events.MessageTypeDatasetDeleted, events.DatasetEvent{DatasetID: id, Name: e.info.Name})
	s.logger.InfoContext(ctx, "Dataset deleted", slog.String("dataset_id", id))
	return nil
}

// Classification returns the cached column classification
func (s *DatasetService) Classification(id string) (dataprocessing.Classification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(id)
	if err != nil {
		return dataprocessing.Classification{}, err
	}
	return e.classification, nil
}

// Classify reclassifies a dataset with force listing the columns the user
// wants treated as categorical. An empty force clears earlier overrides.
func (s *DatasetService) Classify(ctx context.Context, id string, force []string) (dataprocessing.Classification, error) {
	s.mu.Lock()
	e, err := s.entry(id)
	if err != nil {
		s.mu.Unlock()
		return dataprocessing.Classification{}, err
	}
	for _, col := range force {
		if !e.hasColumn(col) {
			s.mu.Unlock()
			return dataprocessing.Classification{}, fmt.Errorf("%w: %q", ErrInvalidColumn, col)
		}
	}
	e.overrides = append([]string{}, force...)
	e.reclassify()
	c := e.classification
	s.mu.Unlock()

	s.publisher.Publish(ctx, events.MessageTypeDatasetClassified, events.DatasetEvent{DatasetID: id, Name: e.info.Name})
	return c, nil
}

// Transform adds derived series for column to the dataset. Running the same
// option again replaces its column. When year-over-year change cannot be
// computed nothing is applied.
func (s *DatasetService) Transform(ctx context.Context, id, column string, opts dataprocessing.TransformOptions) (*TransformResult, error) {
	ctx, span := infrastructure.StartSpan(ctx, "datasets.transform")
	defer span.End()
	start := time.Now()

	result, err := s.transform(id, column, opts)
	derived := 0
	if result != nil {
		derived = len(result.Derived)
	}
	s.metrics.RecordTransform(ctx, derived, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if result.Applied {
		s.publisher.Publish(ctx, events.MessageTypeDatasetTransformed, events.DatasetEvent{
			DatasetID: id,
			Name:      result.Dataset.Name,
			RowCount:  result.Dataset.RowCount,
			Columns:   result.Derived,
		})
	}
	s.logger.InfoContext(ctx, "Dataset transformed",
		slog.String("dataset_id", id),
		slog.String("column", column),
		slog.Bool("applied", result.Applied),
		slog.Any("derived_columns", result.Derived))
	return result, nil
}

func (s *DatasetService) transform(id, column string, opts dataprocessing.TransformOptions) (*TransformResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	if !e.hasColumn(column) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, column)
	}
	if !opts.Any() {
		return nil, fmt.Errorf("%w: no transformation selected", ErrInvalidInput)
	}

	rows, err := dataprocessing.Transform(e.rows, column, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	// Transform hands back the same slice when it applied nothing
	unchanged := len(rows) > 0 && len(e.rows) > 0 && &rows[0] == &e.rows[0]

	var derived []string
	if len(rows) > 0 && !unchanged {
		for _, col := range opts.DerivedColumns(column) {
			if _, ok := rows[0][col]; ok {
				derived = append(derived, col)
			}
		}
	}

	if len(derived) > 0 {
		for _, col := range derived {
			if !e.hasColumn(col) {
				e.info.Columns = append(e.info.Columns, col)
			}
		}
		e.rows = rows
		e.reclassify()
	}

	return &TransformResult{
		Dataset:        e.info,
		Derived:        derived,
		Applied:        len(derived) > 0,
		Classification: e.classification,
	}, nil
}

// checkQuery reports unknown columns and malformed filters
func checkQuery(e *datasetEntry, q dataprocessing.TableQuery) error {
	for col := range q.Filters {
		if !e.hasColumn(col) {
			return fmt.Errorf("%w: %q", ErrInvalidColumn, col)
		}
	}
	if q.Sort != nil && q.Sort.Column != "" && !e.hasColumn(q.Sort.Column) {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, q.Sort.Column)
	}
	if errs := dataprocessing.ValidateFilters(q.Filters); len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Query returns one page of the filtered, searched and sorted rows
func (s *DatasetService) Query(ctx context.Context, id string, q dataprocessing.TableQuery) (*QueryResult, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.entry(id)
	if err == nil {
		err = checkQuery(e, q)
	}
	if err != nil {
		s.metrics.RecordQuery(ctx, "table", time.Since(start), err)
		return nil, err
	}

	page := dataprocessing.VisiblePage(e.resolved, q, e.classification)
	s.metrics.RecordQuery(ctx, "table", time.Since(start), nil)
	return &QueryResult{
		Page:           page,
		Columns:        append([]string{}, e.info.Columns...),
		Classification: e.classification,
	}, nil
}

// Aggregate groups the dataset by one column and reduces another
func (s *DatasetService) Aggregate(ctx context.Context, id string, req AggregateRequest) ([]dataprocessing.Row, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := func() ([]dataprocessing.Row, error) {
		e, err := s.entry(id)
		if err != nil {
			return nil, err
		}
		for _, col := range []string{req.GroupBy, req.ValueColumn} {
			if !e.hasColumn(col) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidColumn, col)
			}
		}
		rows, err := dataprocessing.Aggregate(e.resolved, req.GroupBy, req.ValueColumn, req.Function)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return rows, nil
	}()
	s.metrics.RecordQuery(ctx, "aggregate", time.Since(start), err)
	return rows, err
}

// Chart builds chart series from the dataset
func (s *DatasetService) Chart(ctx context.Context, id string, req ChartRequest) (dataprocessing.ChartData, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := func() (dataprocessing.ChartData, error) {
		e, err := s.entry(id)
		if err != nil {
			return dataprocessing.ChartData{}, err
		}
		for _, col := range append([]string{req.X}, req.Y...) {
			if !e.hasColumn(col) {
				return dataprocessing.ChartData{}, fmt.Errorf("%w: %q", ErrInvalidColumn, col)
			}
		}
		rows := e.resolved
		if req.Query != nil {
			if err := checkQuery(e, *req.Query); err != nil {
				return dataprocessing.ChartData{}, err
			}
			rows = dataprocessing.ApplyQuery(rows, *req.Query, e.classification)
		}
		return dataprocessing.ApplyChartFilter(dataprocessing.BuildChartData(rows, req.X, req.Y...), req.Filter), nil
	}()
	s.metrics.RecordQuery(ctx, "chart", time.Since(start), err)
	return data, err
}

// Export writes every row matching q, in table order, to w. Pagination
// fields of q are ignored.
func (s *DatasetService) Export(ctx context.Context, id string, q dataprocessing.TableQuery, format exporter.Format, w io.Writer) error {
	ctx, span := infrastructure.StartSpan(ctx, "datasets.export")
	defer span.End()

	s.mu.RLock()
	e, err := s.entry(id)
	if err == nil {
		err = checkQuery(e, q)
	}
	if err != nil {
		s.mu.RUnlock()
		return err
	}
	columns := append([]string{}, e.info.Columns...)
	rows := dataprocessing.ApplyQuery(e.resolved, q, e.classification)
	s.mu.RUnlock()

	if err := s.exporter.Export(w, format, columns, rows, true); err != nil {
		if errors.Is(err, exporter.ErrUnsupportedFormat) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return fmt.Errorf("failed to export dataset: %w", err)
	}
	s.logger.InfoContext(ctx, "Dataset exported",
		slog.String("dataset_id", id),
		slog.String("format", string(format)),
		slog.Int("rows", len(rows)))
	return nil
}

// Count returns the number of loaded datasets
func (s *DatasetService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.datasets)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.MessageType, interface{}) {}
