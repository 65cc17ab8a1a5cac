package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linka/internal/dataprocessing"
	apierrors "linka/internal/errors"
	"linka/internal/exporter"
	"linka/internal/services"
	"linka/internal/shared/testutil"
	"linka/pkg/contracts/domain"
)

const datasetID = "6f1c2a8e-4b7d-4c55-9a0e-2f3d8b1c7e90"

func newDatasetRouter(t *testing.T, svc DatasetServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false, ServiceErrorMappings()...)
	h := NewDatasetHandler(svc, 1<<20, logger, errorHandler)

	r := chi.NewRouter()
	r.Mount("/api/datasets", h.Routes())
	return r
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, field, filename, body string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("note", "ignored"))
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func sampleInfo() *domain.DatasetInfo {
	return &domain.DatasetInfo{
		ID:         datasetID,
		Name:       "sales.csv",
		FileType:   "csv",
		Columns:    []string{"month", "revenue"},
		RowCount:   2,
		UploadedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDatasetHandler_Upload(t *testing.T) {
	tests := []struct {
		name           string
		request        func(t *testing.T) *http.Request
		setupMock      func(*MockDatasetService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "stores the file part",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "sales.csv", "month,revenue\nJan,10\n")
			},
			setupMock: func(m *MockDatasetService) {
				m.On("Upload", "sales.csv", mock.Anything).
					Run(func(args mock.Arguments) {
						body, _ := io.ReadAll(args.Get(1).(io.Reader))
						assert.Equal(t, "month,revenue\nJan,10\n", string(body))
					}).
					Return(sampleInfo(), nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"` + datasetID + `"`,
		},
		{
			name: "missing file part",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "attachment", "sales.csv", "x")
			},
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "file is required",
		},
		{
			name: "empty file name",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "", "x")
			},
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unsupported format",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "notes.md", "# hi")
			},
			setupMock: func(m *MockDatasetService) {
				m.On("Upload", "notes.md", mock.Anything).
					Return(nil, fmt.Errorf("%w: md", services.ErrUnsupportedFormat))
			},
			expectedStatus: http.StatusUnsupportedMediaType,
			expectedBody:   apierrors.TypeUnsupportedFormat,
		},
		{
			name: "unparseable upload",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "file", "broken.json", "{nope")
			},
			setupMock: func(m *MockDatasetService) {
				m.On("Upload", "broken.json", mock.Anything).
					Return(nil, fmt.Errorf("%w: malformed", services.ErrInvalidUpload))
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "wrong content type",
			request: func(t *testing.T) *http.Request {
				return jsonRequest(http.MethodPost, "/api/datasets", `{"a":1}`)
			},
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDatasetService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newDatasetRouter(t, svc).ServeHTTP(rec, tt.request(t))

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDatasetHandler_ListAndGet(t *testing.T) {
	svc := new(MockDatasetService)
	svc.On("List").Return([]domain.DatasetInfo{*sampleInfo()})
	svc.On("Get", datasetID).Return(sampleInfo(), nil)
	svc.On("Get", "missing").Return(nil, fmt.Errorf("%w: missing", services.ErrDatasetNotFound))
	router := newDatasetRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+datasetID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"file_type":"csv"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, apierrors.TypeDatasetNotFound, problem["type"])
	assert.Equal(t, float64(http.StatusNotFound), problem["status"])
}

func TestDatasetHandler_Delete(t *testing.T) {
	svc := new(MockDatasetService)
	svc.On("Delete", datasetID).Return(nil)

	rec := httptest.NewRecorder()
	newDatasetRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+datasetID, nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestDatasetHandler_Classification(t *testing.T) {
	current := dataprocessing.NewClassification([]string{"revenue"}, []string{"month"}, nil)
	forced := dataprocessing.NewClassification(nil, []string{"month"}, []string{"revenue"})

	svc := new(MockDatasetService)
	svc.On("Classification", datasetID).Return(current, nil)
	svc.On("Classify", datasetID, []string{"revenue", "zip"}).Return(forced, nil)
	router := newDatasetRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+datasetID+"/classification", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"numeric":["revenue"]`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/datasets/"+datasetID+"/classification?force=revenue,%20zip", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"categorical":["revenue"]`)

	svc.AssertExpectations(t)
}

func TestDatasetHandler_Transform(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockDatasetService)
		expectedStatus int
	}{
		{
			name: "moving average gets the default period",
			body: `{"column":"revenue","options":{"show_moving_average":true}}`,
			setupMock: func(m *MockDatasetService) {
				opts := dataprocessing.TransformOptions{MovingAverage: true, Period: 3}
				m.On("Transform", datasetID, "revenue", opts).
					Return(&services.TransformResult{Derived: []string{"revenue_ma3"}, Applied: true}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "column is required",
			body:           `{"options":{"show_cumulative_sum":true}}`,
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "body is required",
			body:           ``,
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown column",
			body: `{"column":"profit","options":{"show_cumulative_sum":true}}`,
			setupMock: func(m *MockDatasetService) {
				m.On("Transform", datasetID, "profit", mock.Anything).
					Return(nil, fmt.Errorf("%w: %q", services.ErrInvalidColumn, "profit"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "non-positive period",
			body: `{"column":"revenue","options":{"show_moving_average":true,"moving_average_period":-2}}`,
			setupMock: func(m *MockDatasetService) {
				m.On("Transform", datasetID, "revenue", mock.Anything).
					Return(nil, fmt.Errorf("%w: %w", services.ErrInvalidInput, dataprocessing.ErrInvalidPeriod))
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDatasetService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newDatasetRouter(t, svc).ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/datasets/"+datasetID+"/transform", tt.body))

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func TestDatasetHandler_Query(t *testing.T) {
	svc := new(MockDatasetService)
	q := dataprocessing.TableQuery{
		Filters:  dataprocessing.FilterSet{"region": {{Operator: "equals", Value: "north"}}},
		PageSize: 25,
	}
	svc.On("Query", datasetID, q).Return(&services.QueryResult{
		Page:    dataprocessing.Page{TotalFilteredCount: 3, PageCount: 1, PageSize: 25},
		Columns: []string{"region"},
	}, nil)
	svc.On("Query", datasetID, dataprocessing.TableQuery{}).Return(&services.QueryResult{}, nil)
	router := newDatasetRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/datasets/"+datasetID+"/query",
		`{"filters":{"region":[{"operator":"equals","value":"north"}]},"page_size":25}`))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"total_filtered_count":3`)

	// An empty body is the unfiltered first page
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/datasets/"+datasetID+"/query", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/datasets/"+datasetID+"/query", `{"filters":`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestDatasetHandler_Aggregate(t *testing.T) {
	svc := new(MockDatasetService)
	req := services.AggregateRequest{GroupBy: "region", ValueColumn: "revenue", Function: dataprocessing.AggregateSum}
	svc.On("Aggregate", datasetID, req).Return([]dataprocessing.Row{
		{"region": dataprocessing.Text("north"), "revenue": dataprocessing.Number(371)},
	}, nil)
	router := newDatasetRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/datasets/"+datasetID+"/aggregate",
		`{"group_by":"region","value_column":"revenue","function":"sum"}`))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"function":"sum"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/datasets/"+datasetID+"/aggregate",
		`{"group_by":"region","value_column":"revenue","function":"median"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestDatasetHandler_Chart(t *testing.T) {
	svc := new(MockDatasetService)
	svc.On("Chart", datasetID, mock.MatchedBy(func(req services.ChartRequest) bool {
		return req.X == "month" && len(req.Y) == 1 && req.Filter.DataPoints == 2
	})).Return(dataprocessing.ChartData{
		Labels:   []string{"Jan", "Feb"},
		Datasets: []dataprocessing.ChartDataset{{Label: "revenue", Data: []float64{10, 12}}},
	}, nil)
	router := newDatasetRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/datasets/"+datasetID+"/chart",
		`{"x":"month","y":["revenue"],"filter":{"data_points":2}}`))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"labels":["Jan","Feb"]`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/datasets/"+datasetID+"/chart", `{"x":"month","y":[]}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestDatasetHandler_Export(t *testing.T) {
	svc := new(MockDatasetService)
	svc.On("Get", datasetID).Return(sampleInfo(), nil)
	svc.On("Export", datasetID, dataprocessing.TableQuery{}, exporter.FormatXLSX, mock.Anything).
		Run(func(args mock.Arguments) {
			_, _ = io.WriteString(args.Get(3).(io.Writer), "xlsx-bytes")
		}).
		Return(nil)
	svc.On("Export", datasetID, dataprocessing.TableQuery{}, exporter.FormatCSV, mock.Anything).
		Return(fmt.Errorf("%w: %q", services.ErrInvalidColumn, "gone"))
	router := newDatasetRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/datasets/"+datasetID+"/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, exporter.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="sales.xlsx"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Equal(t, "xlsx-bytes", rec.Body.String())

	// A failed export is still a problem response, not a partial file
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/datasets/"+datasetID+"/export", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/datasets/"+datasetID+"/export?format=pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestExportName(t *testing.T) {
	assert.Equal(t, "sales.csv", exportName("sales.xlsx", exporter.FormatCSV))
	assert.Equal(t, "archive.tar.xlsx", exportName("archive.tar.gz", exporter.FormatXLSX))
	assert.Equal(t, "README.csv", exportName("README", exporter.FormatCSV))
	assert.Equal(t, ".env.csv", exportName(".env", exporter.FormatCSV))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " c ", ""}))
	assert.Equal(t, []string{}, splitList(nil))
}
