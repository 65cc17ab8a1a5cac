package domain

import (
	"encoding/json"
	"time"
)

// Dashboard is a saved workspace layout. State is kept as the client sent it
// after validation.
type Dashboard struct {
	ID        string          `json:"dashboard_id" db:"id" validate:"required,uuid"`
	Name      string          `json:"name" db:"name" validate:"required,min=1,max=200"`
	State     json.RawMessage `json:"state,omitempty" db:"state"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// DashboardState is the workspace snapshot a dashboard captures. Client-owned
// parts that the server never interprets stay raw.
type DashboardState struct {
	ComponentPositions json.RawMessage `json:"componentPositions,omitempty"`
	ComponentOrder     []string        `json:"componentOrder,omitempty"`
	Charts             json.RawMessage `json:"charts,omitempty"`
	ShowTable          bool            `json:"showTable"`
	Columns            []string        `json:"columns,omitempty"`
	Data               json.RawMessage `json:"data,omitempty"`
	TableFilters       json.RawMessage `json:"tableFilters,omitempty"`
	FilterRanges       json.RawMessage `json:"filterRanges,omitempty"`
	ChartFilters       json.RawMessage `json:"chartFilters,omitempty"`
	Classification     json.RawMessage `json:"classification,omitempty"`
	ChartOptions       json.RawMessage `json:"chartOptions,omitempty"`
	PageIndex          int             `json:"pageIndex" validate:"min=0"`
	FileType           string          `json:"fileType,omitempty" validate:"omitempty,oneof=csv txt json xml svg xlsx"`
	FileID             string          `json:"fileId,omitempty" validate:"omitempty,uuid"`
}
