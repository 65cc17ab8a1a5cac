package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linka/internal/services"
	"linka/internal/shared/testutil"
)

func newHealthRouter(t *testing.T, svc HealthServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewHealthHandler(svc, logger)

	r := chi.NewRouter()
	r.Mount("/api/health", h.Routes())
	r.Get("/api/version", h.Version)
	r.Get("/api/stats", h.Stats)
	return r
}

func TestHealthHandler(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name           string
		path           string
		setupMock      func(*MockHealthService)
		expectedStatus int
		expectedField  string
		expectedValue  interface{}
	}{
		{
			name: "health",
			path: "/api/health",
			setupMock: func(m *MockHealthService) {
				m.On("HealthCheck").Return(services.HealthStatus{Status: "healthy", Timestamp: now, Version: "0.3.0"})
			},
			expectedStatus: http.StatusOK,
			expectedField:  "status",
			expectedValue:  "healthy",
		},
		{
			name: "ready",
			path: "/api/health/ready",
			setupMock: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{Status: "ready", Timestamp: now})
			},
			expectedStatus: http.StatusOK,
			expectedField:  "status",
			expectedValue:  "ready",
		},
		{
			name: "not ready",
			path: "/api/health/ready",
			setupMock: func(m *MockHealthService) {
				m.On("ReadinessCheck").Return(services.HealthStatus{
					Status:    "not_ready",
					Timestamp: now,
					Services:  map[string]services.ServiceHealth{"storage": {Status: "unhealthy"}},
				})
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedField:  "status",
			expectedValue:  "not_ready",
		},
		{
			name: "live",
			path: "/api/health/live",
			setupMock: func(m *MockHealthService) {
				m.On("LivenessCheck").Return(services.HealthStatus{Status: "alive", Timestamp: now})
			},
			expectedStatus: http.StatusOK,
			expectedField:  "status",
			expectedValue:  "alive",
		},
		{
			name: "version",
			path: "/api/version",
			setupMock: func(m *MockHealthService) {
				m.On("Version").Return(map[string]interface{}{"version": "0.3.0", "api_version": "v1"})
			},
			expectedStatus: http.StatusOK,
			expectedField:  "api_version",
			expectedValue:  "v1",
		},
		{
			name: "stats",
			path: "/api/stats",
			setupMock: func(m *MockHealthService) {
				m.On("Stats").Return(map[string]interface{}{"datasets": 2, "websocket_clients": 0})
			},
			expectedStatus: http.StatusOK,
			expectedField:  "datasets",
			expectedValue:  float64(2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockHealthService)
			tt.setupMock(svc)

			rec := httptest.NewRecorder()
			newHealthRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedValue, body[tt.expectedField])
			svc.AssertExpectations(t)
		})
	}
}
