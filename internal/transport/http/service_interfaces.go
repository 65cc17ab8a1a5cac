package http

import (
	"context"
	"io"

	"linka/internal/dataprocessing"
	"linka/internal/exporter"
	"linka/internal/services"
	api "linka/pkg/contracts/api/v1"
	"linka/pkg/contracts/domain"
)

// DatasetServiceInterface defines the dataset operations the HTTP layer uses
type DatasetServiceInterface interface {
	Upload(ctx context.Context, name string, r io.Reader) (*domain.DatasetInfo, error)
	List() []domain.DatasetInfo
	Get(id string) (*domain.DatasetInfo, error)
	Delete(ctx context.Context, id string) error
	Classification(id string) (dataprocessing.Classification, error)
	Classify(ctx context.Context, id string, force []string) (dataprocessing.Classification, error)
	Transform(ctx context.Context, id, column string, opts dataprocessing.TransformOptions) (*services.TransformResult, error)
	Query(ctx context.Context, id string, q dataprocessing.TableQuery) (*services.QueryResult, error)
	Aggregate(ctx context.Context, id string, req services.AggregateRequest) ([]dataprocessing.Row, error)
	Chart(ctx context.Context, id string, req services.ChartRequest) (dataprocessing.ChartData, error)
	Export(ctx context.Context, id string, q dataprocessing.TableQuery, format exporter.Format, w io.Writer) error
}

// DashboardServiceInterface defines the dashboard operations the HTTP layer uses
type DashboardServiceInterface interface {
	Save(ctx context.Context, req api.SaveDashboardRequest) (*domain.Dashboard, error)
	Get(ctx context.Context, id string) (*domain.Dashboard, error)
	List(ctx context.Context) ([]domain.Dashboard, error)
	Delete(ctx context.Context, id string) error
}

var (
	_ DatasetServiceInterface   = (*services.DatasetService)(nil)
	_ DashboardServiceInterface = (*services.DashboardService)(nil)
)
