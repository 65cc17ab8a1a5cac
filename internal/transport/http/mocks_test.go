package http

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"linka/internal/dataprocessing"
	"linka/internal/exporter"
	"linka/internal/services"
	api "linka/pkg/contracts/api/v1"
	"linka/pkg/contracts/domain"
)

// MockDatasetService is a mock implementation of DatasetServiceInterface
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) Upload(ctx context.Context, name string, r io.Reader) (*domain.DatasetInfo, error) {
	args := m.Called(name, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DatasetInfo), args.Error(1)
}

func (m *MockDatasetService) List() []domain.DatasetInfo {
	args := m.Called()
	return args.Get(0).([]domain.DatasetInfo)
}

func (m *MockDatasetService) Get(id string) (*domain.DatasetInfo, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DatasetInfo), args.Error(1)
}

func (m *MockDatasetService) Delete(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

func (m *MockDatasetService) Classification(id string) (dataprocessing.Classification, error) {
	args := m.Called(id)
	return args.Get(0).(dataprocessing.Classification), args.Error(1)
}

func (m *MockDatasetService) Classify(ctx context.Context, id string, force []string) (dataprocessing.Classification, error) {
	args := m.Called(id, force)
	return args.Get(0).(dataprocessing.Classification), args.Error(1)
}

func (m *MockDatasetService) Transform(ctx context.Context, id, column string, opts dataprocessing.TransformOptions) (*services.TransformResult, error) {
	args := m.Called(id, column, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TransformResult), args.Error(1)
}

func (m *MockDatasetService) Query(ctx context.Context, id string, q dataprocessing.TableQuery) (*services.QueryResult, error) {
	args := m.Called(id, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.QueryResult), args.Error(1)
}

func (m *MockDatasetService) Aggregate(ctx context.Context, id string, req services.AggregateRequest) ([]dataprocessing.Row, error) {
	args := m.Called(id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dataprocessing.Row), args.Error(1)
}

func (m *MockDatasetService) Chart(ctx context.Context, id string, req services.ChartRequest) (dataprocessing.ChartData, error) {
	args := m.Called(id, req)
	return args.Get(0).(dataprocessing.ChartData), args.Error(1)
}

func (m *MockDatasetService) Export(ctx context.Context, id string, q dataprocessing.TableQuery, format exporter.Format, w io.Writer) error {
	args := m.Called(id, q, format, w)
	return args.Error(0)
}

// MockDashboardService is a mock implementation of DashboardServiceInterface
type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Save(ctx context.Context, req api.SaveDashboardRequest) (*domain.Dashboard, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockDashboardService) Get(ctx context.Context, id string) (*domain.Dashboard, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dashboard), args.Error(1)
}

func (m *MockDashboardService) List(ctx context.Context) ([]domain.Dashboard, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Dashboard), args.Error(1)
}

func (m *MockDashboardService) Delete(ctx context.Context, id string) error {
	return m.Called(id).Error(0)
}

// MockHealthService is a mock implementation of HealthServiceInterface
type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called().Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}

func (m *MockHealthService) Stats() map[string]interface{} {
	return m.Called().Get(0).(map[string]interface{})
}
