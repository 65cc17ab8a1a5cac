package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"linka/internal/dataprocessing"
	"linka/internal/infrastructure"
	"linka/internal/storage"
	ws "linka/internal/websocket"
	api "linka/pkg/contracts/api/v1"
	"linka/pkg/contracts/domain"
	"linka/pkg/contracts/events"
)

// DashboardService saves and loads dashboard snapshots
type DashboardService struct {
	store     storage.DashboardStore
	validate  *validator.Validate
	publisher ws.Publisher
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewDashboardService creates a dashboard service. publisher and metrics may be nil.
func NewDashboardService(store storage.DashboardStore, publisher ws.Publisher, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &DashboardService{
		store:     store,
		validate:  validator.New(),
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With(slog.String("service", "dashboards")),
	}
}

// Save validates the request and stores the dashboard. The returned
// dashboard carries the id and timestamps assigned by the store.
func (s *DashboardService) Save(ctx context.Context, req api.SaveDashboardRequest) (*domain.Dashboard, error) {
	if err := s.check(req); err != nil {
		return nil, err
	}
	state, err := json.Marshal(req.State)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dashboard state: %w", err)
	}

	d := &domain.Dashboard{ID: req.ID, Name: req.Name, State: state}
	if err := s.store.Save(ctx, d); err != nil {
		s.metrics.RecordError(ctx, "dashboards")
		return nil, fmt.Errorf("failed to save dashboard: %w", err)
	}

	s.metrics.RecordDashboard(ctx, "saved")
	s.publisher.Publish(ctx, events.MessageTypeDashboardSaved, events.DashboardEvent{DashboardID: d.ID, Name: d.Name})
	s.logger.InfoContext(ctx, "Dashboard saved",
		slog.String("dashboard_id", d.ID),
		slog.String("name", d.Name))
	return d, nil
}

// check runs tag validation and makes sure the parts of the state the
// server understands decode cleanly
func (s *DashboardService) check(req api.SaveDashboardRequest) error {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidDashboard, describe(verrs))
		}
		return fmt.Errorf("%w: %v", ErrInvalidDashboard, err)
	}

	if len(req.State.Classification) > 0 && string(req.State.Classification) != "null" {
		var c dataprocessing.Classification
		if err := json.Unmarshal(req.State.Classification, &c); err != nil {
			return fmt.Errorf("%w: classification: %v", ErrInvalidDashboard, err)
		}
	}
	if len(req.State.TableFilters) > 0 && string(req.State.TableFilters) != "null" {
		var fs dataprocessing.FilterSet
		if err := json.Unmarshal(req.State.TableFilters, &fs); err != nil {
			return fmt.Errorf("%w: tableFilters: %v", ErrInvalidDashboard, err)
		}
		if errs := dataprocessing.ValidateFilters(fs); len(errs) > 0 {
			return fmt.Errorf("%w: tableFilters: %w", ErrInvalidDashboard, errors.Join(errs...))
		}
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
}

// Get returns a dashboard with its state
func (s *DashboardService) Get(ctx context.Context, id string) (*domain.Dashboard, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, id)
	}
	return d, nil
}

// State decodes the stored state of a dashboard
func (s *DashboardService) State(ctx context.Context, id string) (*domain.DashboardState, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var state domain.DashboardState
	if err := json.Unmarshal(d.State, &state); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard state: %w", err)
	}
	return &state, nil
}

// List returns dashboard summaries, newest first
func (s *DashboardService) List(ctx context.Context) ([]domain.Dashboard, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	if list == nil {
		list = []domain.Dashboard{}
	}
	return list, nil
}

// Delete removes a dashboard
func (s *DashboardService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.mapErr(err, id)
	}
	s.metrics.RecordDashboard(ctx, "deleted")
	s.publisher.Publish(ctx, events.MessageTypeDashboardDeleted, events.DashboardEvent{DashboardID: id})
	s.logger.InfoContext(ctx, "Dashboard deleted", slog.String("dashboard_id", id))
	return nil
}

func (s *DashboardService) mapErr(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrDashboardNotFound, id)
	}
	return err
}
