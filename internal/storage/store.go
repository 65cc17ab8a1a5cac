package storage

import (
	"context"
	"errors"

	"linka/pkg/contracts/domain"
)

// ErrNotFound is returned when no dashboard has the requested id
var ErrNotFound = errors.New("dashboard not found")

// DashboardStore persists saved dashboards
type DashboardStore interface {
	// Save inserts the dashboard, or replaces it when the id already exists.
	// Timestamps are set by the store.
	Save(ctx context.Context, d *domain.Dashboard) error
	Get(ctx context.Context, id string) (*domain.Dashboard, error)
	// List returns every dashboard without its state, newest first.
	List(ctx context.Context) ([]domain.Dashboard, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
