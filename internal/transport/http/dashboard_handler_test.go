package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "linka/internal/errors"
	"linka/internal/services"
	"linka/internal/shared/testutil"
	api "linka/pkg/contracts/api/v1"
	"linka/pkg/contracts/domain"
)

const dashboardID = "0b9d6f3e-58a1-4c2f-8e7b-1d4a9c3f6e21"

func newDashboardRouter(t *testing.T, svc DashboardServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false, ServiceErrorMappings()...)

	r := chi.NewRouter()
	r.Mount("/api/dashboards", NewDashboardHandler(svc, logger, errorHandler).Routes())
	return r
}

func sampleDashboard() *domain.Dashboard {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Dashboard{
		ID:        dashboardID,
		Name:      "Q1 revenue",
		State:     json.RawMessage(`{"showTable":true,"pageIndex":0}`),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestDashboardHandler_Save(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockDashboardService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "new dashboard",
			body: `{"name":"Q1 revenue","state":{"showTable":true,"charts":[]}}`,
			setupMock: func(m *MockDashboardService) {
				m.On("Save", mock.MatchedBy(func(req api.SaveDashboardRequest) bool {
					return req.ID == "" && req.Name == "Q1 revenue" && req.State.ShowTable && string(req.State.Charts) == "[]"
				})).Return(sampleDashboard(), nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"dashboard_id":"` + dashboardID + `"`,
		},
		{
			name: "overwrite keeps the id",
			body: `{"dashboard_id":"` + dashboardID + `","name":"Q1 revenue","state":{}}`,
			setupMock: func(m *MockDashboardService) {
				m.On("Save", mock.MatchedBy(func(req api.SaveDashboardRequest) bool {
					return req.ID == dashboardID
				})).Return(sampleDashboard(), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "Dashboard saved successfully",
		},
		{
			name:           "name is required",
			body:           `{"state":{}}`,
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "name is required",
		},
		{
			name:           "id must be a uuid",
			body:           `{"dashboard_id":"abc","name":"x","state":{}}`,
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative page index",
			body:           `{"name":"x","state":{"pageIndex":-1}}`,
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			body:           `{"name":`,
			setupMock:      func(m *MockDashboardService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "rejected by the service",
			body: `{"name":"x","state":{"charts":{}}}`,
			setupMock: func(m *MockDashboardService) {
				m.On("Save", mock.Anything).
					Return(nil, fmt.Errorf("%w: charts must be an array", services.ErrInvalidDashboard))
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "charts must be an array",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDashboardService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newDashboardRouter(t, svc).ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/dashboards", tt.body))

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedBody != "" {
				assert.Contains(t, rec.Body.String(), tt.expectedBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDashboardHandler_Get(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Get", dashboardID).Return(sampleDashboard(), nil)
	svc.On("Get", "gone").Return(nil, fmt.Errorf("%w: gone", services.ErrDashboardNotFound))
	router := newDashboardRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/"+dashboardID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Q1 revenue", got["name"])
	assert.Equal(t, map[string]interface{}{"showTable": true, "pageIndex": float64(0)}, got["state"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/gone", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), apierrors.TypeDashboardNotFound)

	svc.AssertExpectations(t)
}

func TestDashboardHandler_List(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("List").Return([]domain.Dashboard{*sampleDashboard()}, nil).Once()
	svc.On("List").Return(nil, fmt.Errorf("database is locked")).Once()
	router := newDashboardRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	// Unmapped failures are internal errors without the cause leaking
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "locked")

	svc.AssertExpectations(t)
}

func TestDashboardHandler_Delete(t *testing.T) {
	svc := new(MockDashboardService)
	svc.On("Delete", dashboardID).Return(nil)
	svc.On("Delete", "gone").Return(services.ErrDashboardNotFound)
	router := newDashboardRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/dashboards/"+dashboardID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/dashboards/gone", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.AssertExpectations(t)
}
