// Package services implements the business logic layer of Linka. It sits
// between the HTTP handlers and the parsing, table and storage packages.
//
// # Available Services
//
//	- DatasetService: uploads, classification, transforms, table queries,
//	  aggregation, chart data and exports over in-memory datasets
//	- DashboardService: validated dashboard snapshots in the dashboard store
//	- HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return the sentinel errors in errors.go wrapped with context.
// Handlers match them with errors.Is:
//
//	- ErrDatasetNotFound, ErrDashboardNotFound for missing resources
//	- ErrInvalidColumn, ErrInvalidInput, ErrInvalidDashboard for bad requests
//	- ErrUnsupportedFormat, ErrFileTooLarge, ErrInvalidUpload for uploads
//
// # Events
//
// Dataset and dashboard changes are published to the websocket hub so
// connected dashboards can refresh.
package services
