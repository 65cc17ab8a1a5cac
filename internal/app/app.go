package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"linka/internal/config"
	apierrors "linka/internal/errors"
	"linka/internal/infrastructure"
	customMiddleware "linka/internal/middleware"
	"linka/internal/services"
	"linka/internal/storage"
	handlers "linka/internal/transport/http"
	ws "linka/internal/websocket"
	"linka/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	Router        *chi.Mux
	Server        *http.Server
	Hub           *ws.Hub
	Store         *storage.SQLiteStore
	Datasets      *services.DatasetService
	Dashboards    *services.DashboardService
	Health        *services.HealthService
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	ErrorHandler  *apierrors.ErrorHandler

	startTime time.Time
}

// NewApplication wires every component from cfg. logger may be nil, in
// which case one is built from cfg.Logging.
func NewApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		var err error
		logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(&infrastructure.OTelConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: contracts.Version,
		Environment:    environment(cfg),
		EnableMetrics:  cfg.Telemetry.MetricsEnabled,
		EnableTracing:  cfg.Telemetry.TracingEnabled,
		SampleRatio:    cfg.Telemetry.SampleRate,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		startTime:     time.Now(),
	}

	if err := app.initializeServices(ctx); err != nil {
		_ = otelProviders.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

func environment(cfg *config.Config) string {
	if cfg.Logging.Development {
		return "development"
	}
	return "production"
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	metrics, err := infrastructure.CreateBusinessMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.Metrics = metrics

	if err := infrastructure.RegisterSystemMetrics(a.OTelProviders.Meter, a.startTime); err != nil {
		a.Logger.Warn("System metrics unavailable", slog.String("error", err.Error()))
	}

	store, err := storage.OpenSQLite(ctx, a.Paths.DatabaseFile, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to open dashboard store: %w", err)
	}
	a.Store = store

	a.Hub = ws.NewHub(a.Logger, metrics)
	a.Datasets = services.NewDatasetService(a.Config.Upload, a.Paths, nil, a.Hub, metrics, a.Logger)
	a.Dashboards = services.NewDashboardService(store, a.Hub, metrics, a.Logger)
	a.Health = services.NewHealthService(contracts.Version, contracts.BuildTime, services.HealthDeps{
		Paths:    a.Paths,
		Hub:      a.Hub,
		Datasets: a.Datasets,
		Store:    store,
	}, a.Logger)

	a.ErrorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development, handlers.ServiceErrorMappings()...)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These do not wrap the ResponseWriter, so the upgrade still works
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	wsHandler := ws.NewHandler(a.Hub, ws.HandlerConfig{
		AllowedOrigins:  a.getCORSConfig().AllowedOrigins,
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		Client: ws.ClientConfig{
			PongWait:   a.Config.WebSocket.PongWait,
			PingPeriod: a.Config.WebSocket.PingPeriod,
		},
	}, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).Handle("/ws", wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.DefaultSecureHeaders().Handler)
		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.ErrorHandler,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.AuditLog(a.Logger))

		a.setupAPIRoutes(r)
		a.setupStaticRoutes(r)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.StripSlashes)
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(apierrors.NewErrorMiddleware(a.ErrorHandler, a.Logger).Handler)

		healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)
		r.Get("/stats", healthHandler.Stats)

		datasetHandler := handlers.NewDatasetHandler(a.Datasets, a.Config.Upload.MaxSizeBytes, a.Logger, a.ErrorHandler)
		r.Mount("/datasets", datasetHandler.Routes())

		dashboardHandler := handlers.NewDashboardHandler(a.Dashboards, a.Logger, a.ErrorHandler)
		r.Mount("/dashboards", dashboardHandler.Routes())

		r.NotFound(a.ErrorHandler.NotFound)
		r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)
	})
}

// setupStaticRoutes serves the single page frontend from the web directory.
// Unknown paths fall back to index.html so client side routes resolve.
func (a *Application) setupStaticRoutes(r chi.Router) {
	webDir := a.Paths.WebDir
	if _, err := os.Stat(webDir); err != nil {
		a.Logger.Warn("Web directory not found, frontend disabled", slog.String("path", webDir))
		return
	}

	fileServer := http.FileServer(http.Dir(webDir))
	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
			name := filepath.Join(webDir, filepath.FromSlash(filepath.Clean("/"+req.URL.Path)))
			if !config.Contains(webDir, name) {
				a.ErrorHandler.NotFound(w, req)
				return
			}
			if info, err := os.Stat(name); err != nil || info.IsDir() && req.URL.Path != "/" {
				index := filepath.Join(webDir, "index.html")
				if _, err := os.Stat(index); err != nil {
					a.ErrorHandler.NotFound(w, req)
					return
				}
				http.ServeFile(w, req, index)
				return
			}
			fileServer.ServeHTTP(w, req)
		})
	})
}

// getCORSConfig builds the CORS policy from the security config. Development
// mode also admits the local frontend dev servers.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: append([]string(nil), a.Config.Security.AllowedOrigins...),
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition", "Retry-After"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
	if a.Config.Logging.Development {
		for _, origin := range []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"} {
			if !contains(cfg.AllowedOrigins, origin) {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	return cfg
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start restores datasets left in the uploads directory and starts the hub.
// It does not block.
func (a *Application) Start(ctx context.Context) error {
	a.Hub.Start()

	restored, err := a.Datasets.Restore(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Some uploads could not be restored", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application started",
		slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
		slog.Int("restored_datasets", restored),
		slog.String("level", a.Config.Logging.Level))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	a.Hub.Stop()

	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close dashboard store: %w", err))
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	if err := infrastructure.CloseLogFile(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("Received shutdown signal")
		return a.Stop(context.Background())
	})
	return g.Wait()
}
