// Package api contains the HTTP request and response contracts of the
// Linka API. Version v1 represents the current stable API version.
package api

import (
	"linka/pkg/contracts/domain"
)

// Dashboard API Requests

// SaveDashboardRequest creates a dashboard, or replaces it when ID names an
// existing one
type SaveDashboardRequest struct {
	ID    string                `json:"dashboard_id,omitempty" validate:"omitempty,uuid"`
	Name  string                `json:"name" validate:"required,min=1,max=200"`
	State domain.DashboardState `json:"state"`
}

// Dataset API Requests

// ClassifyRequest lists the columns forced to categorical
type ClassifyRequest struct {
	Force []string `json:"force" query:"force" validate:"omitempty,dive,required"`
}

// Responses

// DatasetListResponse wraps the dataset listing
type DatasetListResponse struct {
	Datasets []domain.DatasetInfo `json:"datasets"`
	Count    int                  `json:"count"`
}

// DashboardSavedResponse is returned after a dashboard is saved
type DashboardSavedResponse struct {
	DashboardID string `json:"dashboard_id"`
	Name        string `json:"name"`
	Message     string `json:"message,omitempty"`
}

// DashboardListResponse wraps the dashboard listing
type DashboardListResponse struct {
	Dashboards []domain.Dashboard `json:"dashboards"`
	Count      int                `json:"count"`
}
