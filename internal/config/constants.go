package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "linka"
	AppVersion = "1.0.0"

	// File Paths (relative to the base directory)
	DefaultDataDir      = "data"
	DefaultLogsDir      = "logs"
	DefaultWebDir       = "web"
	DefaultUploadsDir   = "uploads" // under the data directory
	DefaultDatabaseFile = "linka.db"

	// Upload limits
	DefaultMaxUploadSize = 50 << 20 // 50MB

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// API routes
const (
	APIBasePath        = "/api"
	DatasetsEndpoint   = "/api/datasets"
	DashboardsEndpoint = "/api/dashboards"
	HealthEndpoint     = "/api/health"
	MetricsEndpoint    = "/metrics"
	WebSocketEndpoint  = "/ws"
)
