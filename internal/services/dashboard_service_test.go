package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linka/internal/shared/testutil"
	"linka/internal/storage"
	api "linka/pkg/contracts/api/v1"
	"linka/pkg/contracts/domain"
	"linka/pkg/contracts/events"
)

func newDashboardService(t *testing.T) (*DashboardService, *mockPublisher, *storage.SQLiteStore) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	store, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "linka.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := newMockPublisher()
	return NewDashboardService(store, pub, nil, logger), pub, store
}

func sampleState() domain.DashboardState {
	return domain.DashboardState{
		ComponentOrder: []string{"table", "chart-1"},
		Charts:         json.RawMessage(`[{"id":"chart-1","type":"bar","x":"month","y":["revenue"]}]`),
		ShowTable:      true,
		Columns:        []string{"month", "revenue"},
		TableFilters:   json.RawMessage(`{"revenue":[{"operator":">","value":"100"}]}`),
		Classification: json.RawMessage(`{"numeric":["revenue"],"date":["month"],"categorical":[]}`),
		PageIndex:      2,
		FileType:       "csv",
		FileID:         uuid.NewString(),
	}
}

func TestDashboardService_SaveAndLoad(t *testing.T) {
	svc, pub, _ := newDashboardService(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, api.SaveDashboardRequest{Name: "Monthly sales", State: sampleState()})
	require.NoError(t, err)
	_, err = uuid.Parse(saved.ID)
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())
	pub.AssertCalled(t, "Publish", mock.Anything, events.MessageTypeDashboardSaved, events.DashboardEvent{DashboardID: saved.ID, Name: "Monthly sales"})

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Monthly sales", got.Name)

	state, err := svc.State(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, sampleState().Columns, state.Columns)
	assert.Equal(t, 2, state.PageIndex)
	assert.True(t, state.ShowTable)
	assert.JSONEq(t, `{"revenue":[{"operator":">","value":"100"}]}`, string(state.TableFilters))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
}

func TestDashboardService_SaveReplaces(t *testing.T) {
	svc, _, _ := newDashboardService(t)
	ctx := context.Background()

	first, err := svc.Save(ctx, api.SaveDashboardRequest{Name: "Draft", State: sampleState()})
	require.NoError(t, err)

	second, err := svc.Save(ctx, api.SaveDashboardRequest{ID: first.ID, Name: "Final", State: sampleState()})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Final", list[0].Name)
}

func TestDashboardService_SaveValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *api.SaveDashboardRequest)
	}{
		{"missing name", func(r *api.SaveDashboardRequest) { r.Name = "" }},
		{"bad id", func(r *api.SaveDashboardRequest) { r.ID = "not-a-uuid" }},
		{"negative page", func(r *api.SaveDashboardRequest) { r.State.PageIndex = -1 }},
		{"unknown file type", func(r *api.SaveDashboardRequest) { r.State.FileType = "pdf" }},
		{"malformed classification", func(r *api.SaveDashboardRequest) { r.State.Classification = json.RawMessage(`[1,2]`) }},
		{"malformed filters", func(r *api.SaveDashboardRequest) { r.State.TableFilters = json.RawMessage(`{"a":"b"}`) }},
		{"unknown operator", func(r *api.SaveDashboardRequest) {
			r.State.TableFilters = json.RawMessage(`{"a":[{"operator":"like","value":"x"}]}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub, _ := newDashboardService(t)
			req := api.SaveDashboardRequest{Name: "ok", State: sampleState()}
			tt.mutate(&req)

			_, err := svc.Save(context.Background(), req)
			assert.True(t, errors.Is(err, ErrInvalidDashboard), "got %v", err)
			pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDashboardService_Delete(t *testing.T) {
	svc, pub, _ := newDashboardService(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, api.SaveDashboardRequest{Name: "Temp", State: domain.DashboardState{}})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, saved.ID))
	pub.AssertCalled(t, "Publish", mock.Anything, events.MessageTypeDashboardDeleted, mock.Anything)

	_, err = svc.Get(ctx, saved.ID)
	assert.True(t, errors.Is(err, ErrDashboardNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, saved.ID), ErrDashboardNotFound))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
