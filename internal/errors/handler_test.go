package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linka/internal/shared/testutil"
)

var errWidgetMissing = errors.New("widget not found")

func newHandler(t *testing.T) *ErrorHandler {
	logger, _ := testutil.NewTestLogger(t)
	return NewErrorHandler(logger, false, Mapping{
		Err:    errWidgetMissing,
		Status: http.StatusNotFound,
		Type:   TypeDatasetNotFound,
		Title:  "Dataset Not Found",
	})
}

func TestErrorToProblem(t *testing.T) {
	h := newHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/x", nil)

	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"mapped sentinel", errWidgetMissing, http.StatusNotFound, TypeDatasetNotFound},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", errWidgetMissing), http.StatusNotFound, TypeDatasetNotFound},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"rate limited", ErrRateLimitExceeded, http.StatusTooManyRequests, TypeRateLimit},
		{"unsupported media", UnsupportedMediaType("text/plain", []string{"application/json"}), http.StatusUnsupportedMediaType, TypeUnsupportedFormat},
		{"body too large", PayloadTooLarge(10, 20), http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"app validation", NewAppValidationError("bad column"), http.StatusBadRequest, TypeValidation},
		{"app not found", NewNotFoundError("dashboard"), http.StatusNotFound, TypeNotFound},
		{"app parsing", NewParsingError("line 3", errors.New("bare quote")), http.StatusUnprocessableEntity, TypeInvalidUpload},
		{"app storage", NewStorageError("disk", errors.New("io")), http.StatusInternalServerError, TypeInternal},
		{"max bytes", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := h.ErrorToProblem(tt.err, req)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.typ, p.Type)
			assert.Equal(t, "/api/datasets/x", p.Instance)
		})
	}
}

func TestErrorToProblem_HidesInternalDetail(t *testing.T) {
	h := newHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	p := h.ErrorToProblem(NewStorageError("secret path /var/db", nil), req)
	assert.NotContains(t, p.Detail, "/var/db")
}

func TestHandleError_WritesProblemJSON(t *testing.T) {
	h := newHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/abc", nil)

	h.HandleError(rec, req, fmt.Errorf("%w: abc", errWidgetMissing))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeDatasetNotFound, body["type"])
	assert.Equal(t, "Dataset Not Found", body["title"])
	assert.Equal(t, "widget not found: abc", body["detail"])
	assert.Contains(t, body, "trace_id")
}

func TestHandleError_NilIsNoop(t *testing.T) {
	rec := httptest.NewRecorder()
	newHandler(t).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Equal(t, 0, rec.Body.Len())
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newHandler(t)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodPatch, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "PATCH")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := newHandler(t)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	RecoveryMiddleware(h)(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "kaboom")
}

func TestErrorMiddleware_LogsFailedCalls(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	r := chi.NewRouter()
	r.Use(NewErrorMiddleware(h, logger).Handler)
	r.Post("/api/datasets/{id}/query", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	body := `{"filters":{"region":[],"amount":[]},"search":"north","page_size":10,"rows":[1,2,3]}`
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/abc/query?x=1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	records := logs.GetRecords()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "api call failed", rec.Message)
	assert.Equal(t, "/api/datasets/{id}/query", rec.Attrs["route"])
	assert.Equal(t, "abc", rec.Attrs["resource_id"])
	assert.Equal(t, "x=1", rec.Attrs["query"])
	assert.Equal(t, int64(http.StatusBadRequest), rec.Attrs["status"])

	summary, ok := rec.Attrs["request"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"amount", "region"}, summary["filter_columns"])
	assert.Equal(t, "north", summary["search"])
	assert.NotContains(t, summary, "rows")
}

func TestErrorMiddleware_RecoversPanics(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	})

	rec := httptest.NewRecorder()
	NewErrorMiddleware(h, logger).Handler(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSummarizeBody(t *testing.T) {
	out := summarizeBody([]byte(`{"name":"Q1","state":{"charts":[]}}`))
	assert.Equal(t, "Q1", out["name"])
	assert.Equal(t, len(`{"charts":[]}`), out["state_bytes"])
	assert.NotContains(t, out, "state")

	out = summarizeBody([]byte(`{"column":`))
	assert.Equal(t, true, out["invalid_json"])
}

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStorageError("write failed", cause).WithContext("path", "/tmp")

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "write failed: disk full", err.Error())
	assert.Equal(t, "/tmp", err.Context["path"])

	group := err.LogValue().Group()
	require.Len(t, group, 3)
	assert.Equal(t, "type", group[0].Key)
	assert.Equal(t, "STORAGE", group[0].Value.String())
	assert.Equal(t, "path", group[2].Key)
}

func TestErrorToProblem_MappedKeepsParserContext(t *testing.T) {
	h := newHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", nil)

	parseErr := NewParsingError("line 7", errors.New("bare quote")).WithContext("line", 7)
	p := h.ErrorToProblem(fmt.Errorf("%w: %w", errWidgetMissing, parseErr), req)
	assert.Equal(t, http.StatusNotFound, p.Status)
	assert.Equal(t, map[string]interface{}{"line": 7}, p.Extensions["context"])
}
