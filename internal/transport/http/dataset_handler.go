package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"linka/internal/dataprocessing"
	apierrors "linka/internal/errors"
	"linka/internal/exporter"
	mw "linka/internal/middleware"
	"linka/internal/services"
	api "linka/pkg/contracts/api/v1"
)

// multipartOverhead is allowed on top of the upload limit for part headers
// and boundaries
const multipartOverhead = 1 << 20

// TransformRequest selects the derived series to add for one column
type TransformRequest struct {
	Column  string                          `json:"column" validate:"required,column"`
	Options dataprocessing.TransformOptions `json:"options"`
}

// DatasetHandler handles dataset HTTP requests with RFC 7807 compliance
type DatasetHandler struct {
	service        DatasetServiceInterface
	maxUploadBytes int64
	validation     *mw.ValidationMiddleware
	params         *mw.QueryParamValidator
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		validation:     mw.NewValidationMiddleware(logger, errorHandler),
		params:         mw.NewQueryParamValidator(logger, errorHandler),
		logger:         logger.With(slog.String("component", "dataset_handler")),
		errorHandler:   errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.validation.ContentType("multipart/form-data")).Post("/", h.Upload)
	r.Get("/", h.List)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Delete)
		r.Get("/classification", h.Classification)

		r.Group(func(r chi.Router) {
			r.Use(h.validation.ContentType("application/json"))
			r.Use(h.validation.ValidateRequest)
			r.Post("/transform", h.Transform)
			r.Post("/query", h.Query)
			r.Post("/aggregate", h.Aggregate)
			r.Post("/chart", h.Chart)
			r.Post("/export", h.Export)
		})
	})

	return r
}

// Upload handles POST /api/datasets with a multipart "file" field. The part
// is streamed to the service without buffering the whole upload.
func (h *DatasetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file is required"))
			return
		}
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		name := part.FileName()
		if err := h.validation.ValidateField("file", name, "filename"); err != nil {
			part.Close()
			h.errorHandler.HandleError(w, r, err)
			return
		}

		info, err := h.service.Upload(r.Context(), name, part)
		part.Close()
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		h.logger.InfoContext(r.Context(), "dataset uploaded",
			slog.String("dataset_id", info.ID),
			slog.String("file", info.Name),
			slog.Int("rows", info.RowCount))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, info)
		return
	}
}

// List handles GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.service.List()
	render.JSON(w, r, api.DatasetListResponse{Datasets: list, Count: len(list)})
}

// Get handles GET /api/datasets/{id}
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, info)
}

// Delete handles DELETE /api/datasets/{id}
func (h *DatasetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Classification handles GET /api/datasets/{id}/classification. The optional
// force parameter lists columns to treat as categorical, comma separated.
func (h *DatasetHandler) Classification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !r.URL.Query().Has("force") {
		c, err := h.service.Classification(id)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		render.JSON(w, r, c)
		return
	}

	req := api.ClassifyRequest{Force: splitList(r.URL.Query()["force"])}
	if err := h.validation.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	c, err := h.service.Classify(r.Context(), id, req.Force)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, c)
}

// Transform handles POST /api/datasets/{id}/transform
func (h *DatasetHandler) Transform(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if req.Options.MovingAverage && req.Options.Period == 0 {
		req.Options.Period = dataprocessing.DefaultTransformOptions().Period
	}

	result, err := h.service.Transform(r.Context(), chi.URLParam(r, "id"), req.Column, req.Options)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Query handles POST /api/datasets/{id}/query. An empty body returns the
// first page of the unfiltered table.
func (h *DatasetHandler) Query(w http.ResponseWriter, r *http.Request) {
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}
	result, err := h.service.Query(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// Aggregate handles POST /api/datasets/{id}/aggregate
func (h *DatasetHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	var req services.AggregateRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	rows, err := h.service.Aggregate(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"group_by":     req.GroupBy,
		"value_column": req.ValueColumn,
		"function":     req.Function,
		"rows":         rows,
	})
}

// Chart handles POST /api/datasets/{id}/chart
func (h *DatasetHandler) Chart(w http.ResponseWriter, r *http.Request) {
	var req services.ChartRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	data, err := h.service.Chart(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, data)
}

// Export handles POST /api/datasets/{id}/export?format=csv|xlsx. The file is
// built in memory first so a failure can still be reported as a problem.
func (h *DatasetHandler) Export(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.params.ValidateEnum(w, r, "format", []string{string(exporter.FormatCSV), string(exporter.FormatXLSX)}, string(exporter.FormatCSV))
	if !ok {
		return
	}
	format, err := exporter.ParseFormat(raw)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	q, ok := h.decodeQuery(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	info, err := h.service.Get(id)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), id, q, format, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(info.Name, format)))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted",
			slog.String("dataset_id", id),
			slog.String("error", err.Error()))
	}
}

func (h *DatasetHandler) decodeQuery(w http.ResponseWriter, r *http.Request) (dataprocessing.TableQuery, bool) {
	var q dataprocessing.TableQuery
	if r.Body == nil || r.ContentLength == 0 {
		return q, true
	}
	if err := render.DecodeJSON(r.Body, &q); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return q, false
	}
	return q, true
}

// exportName swaps the upload's extension for the export format's
func exportName(name string, format exporter.Format) string {
	base := strings.TrimSuffix(name, fileExt(name))
	if base == "" {
		base = "export"
	}
	return base + format.Extension()
}

func fileExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i:]
	}
	return ""
}

// splitList flattens repeated and comma separated query values
func splitList(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
