package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"linka/internal/config"
	"linka/internal/infrastructure"
	ws "linka/internal/websocket"
)

// Pinger is implemented by stores that can report their availability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	hub       *ws.Hub
	datasets  *DatasetService
	store     Pinger
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                      `json:"status"`
	Timestamp time.Time                   `json:"timestamp"`
	Version   string                      `json:"version"`
	Runtime   *infrastructure.SystemStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth    `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// HealthDeps are the components the health service inspects. Any of them
// may be nil.
type HealthDeps struct {
	Paths    *config.Paths
	Hub      *ws.Hub
	Datasets *DatasetService
	Store    Pinger
}

// NewHealthService creates a new health service
func NewHealthService(version, buildTime string, deps HealthDeps, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     deps.Paths,
		hub:       deps.Hub,
		datasets:  deps.Datasets,
		store:     deps.Store,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether every dependency can serve requests
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"websocket": hs.checkWebSocketHealth(),
			"data":      hs.checkDataHealth(),
			"storage":   hs.checkStorageHealth(ctx),
		},
	}

	for name, service := range status.Services {
		if service.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "Service not ready",
				slog.String("service", name),
				slog.String("message", service.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status with runtime statistics
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.CollectSystemStats(hs.startTime)
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   &stats,
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	stats := infrastructure.CollectSystemStats(hs.startTime)
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": stats.GoVersion,
		"os":         stats.OS,
		"arch":       stats.Arch,
		"uptime":     stats.UptimeSeconds,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// Stats returns application level counters
func (hs *HealthService) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"uptime_seconds": time.Since(hs.startTime).Seconds(),
	}
	if hs.datasets != nil {
		stats["datasets"] = hs.datasets.Count()
	}
	if hs.hub != nil {
		stats["websocket"] = hs.hub.Stats()
	}
	return stats
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "websocket hub not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	dir := hs.paths.UploadsDir
	if _, err := os.Stat(dir); err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("Uploads directory not found: %s", dir)}
	}

	// Check if we can write to the uploads directory
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("Cannot write to uploads directory: %v", err)}
	}
	f.Close()
	os.Remove(f.Name())

	return ServiceHealth{Status: "ready", Message: "Data service is healthy"}
}

func (hs *HealthService) checkStorageHealth(ctx context.Context) ServiceHealth {
	if hs.store == nil {
		return ServiceHealth{Status: "not_ready", Message: "dashboard store not initialized"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := hs.store.Ping(ctx); err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("Dashboard store unavailable: %v", err)}
	}
	return ServiceHealth{Status: "ready", Message: "Dashboard store is healthy"}
}
