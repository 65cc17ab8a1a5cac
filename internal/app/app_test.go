package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linka/internal/config"
	"linka/internal/shared/testutil"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Storage.SQLitePath = ":memory:"
	cfg.Security.RateLimit.Enabled = false

	logger, _ := testutil.NewTestLogger(t)
	app, err := NewApplication(context.Background(), cfg, logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		app.Hub.Stop()
		_ = app.Store.Close()
		_ = app.OTelProviders.Shutdown(context.Background())
	})
	return app
}

func serve(app *Application, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, name, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = io.WriteString(part, body)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestNewApplication_ResolvesPaths(t *testing.T) {
	app := newTestApp(t)

	assert.DirExists(t, app.Paths.DataDir)
	assert.DirExists(t, app.Paths.UploadsDir)
	assert.Equal(t, ":memory:", app.Paths.DatabaseFile)
	assert.Equal(t, ":8080", app.Server.Addr)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/health", http.StatusOK},
		{"/api/health/live", http.StatusOK},
		{"/api/health/ready", http.StatusOK},
		{"/api/version", http.StatusOK},
		{"/api/stats", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := serve(app, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestDatasetLifecycle(t *testing.T) {
	app := newTestApp(t)

	rec := serve(app, uploadRequest(t, "sales.csv", "month,total\nJan,10\nFeb,12\nMar,9\n"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info struct {
		ID       string   `json:"id"`
		Columns  []string `json:"columns"`
		RowCount int      `json:"row_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, []string{"month", "total"}, info.Columns)
	assert.Equal(t, 3, info.RowCount)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	query := httptest.NewRequest(http.MethodPost, "/api/datasets/"+info.ID+"/query",
		strings.NewReader(`{"sort":{"column":"total","direction":"desc"},"page_size":2}`))
	query.Header.Set("Content-Type", "application/json")
	rec = serve(app, query)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total_filtered_count":3`)

	rec = serve(app, httptest.NewRequest(http.MethodPost, "/api/datasets/"+info.ID+"/export?format=csv", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="sales.csv"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "month,total"))

	rec = serve(app, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+info.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/api/datasets/"+info.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestDashboardRoundTrip(t *testing.T) {
	app := newTestApp(t)

	save := httptest.NewRequest(http.MethodPost, "/api/dashboards",
		strings.NewReader(`{"name":"Q1","state":{"charts":[]}}`))
	save.Header.Set("Content-Type", "application/json")
	rec := serve(app, save)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var saved struct {
		ID string `json:"dashboard_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ID)

	rec = serve(app, httptest.NewRequest(http.MethodGet, "/api/dashboards/"+saved.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Q1")
}

func TestUnknownRoutes(t *testing.T) {
	app := newTestApp(t)

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = serve(app, httptest.NewRequest(http.MethodPut, "/api/datasets", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)

	serve(app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	rec := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticFallback(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, os.MkdirAll(app.Paths.WebDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(app.Paths.WebDir, "index.html"), []byte("<html>linka</html>"), 0o644))
	app.setupRouter()

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/dashboards/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linka")
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestGetCORSConfig(t *testing.T) {
	app := newTestApp(t)

	cfg := app.getCORSConfig()
	assert.Equal(t, app.Config.Security.AllowedOrigins, cfg.AllowedOrigins)

	app.Config.Logging.Development = true
	cfg = app.getCORSConfig()
	assert.Contains(t, cfg.AllowedOrigins, "http://127.0.0.1:5173")
	assert.Contains(t, cfg.ExposedHeaders, "Content-Disposition")
}
