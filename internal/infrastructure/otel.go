package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceVersion = "1.0.0"
	MeterName      = "linka"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return &OTelConfig{
		ServiceName:    MeterName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		EnableMetrics:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics. Disabled signals fall back
// to no-op implementations so callers never need nil checks.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Tracer: otel.Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if cfg.EnableTracing {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		otel.SetTracerProvider(tp)
		providers.TracerProvider = tp
		providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	}

	if cfg.EnableMetrics {
		// A private registry keeps repeated initialisation (tests, restarts)
		// from colliding in the prometheus default registerer.
		registry := promclient.NewRegistry()
		exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(mp)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))
	return providers, nil
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// BusinessMetrics holds the application metrics. A nil *BusinessMetrics is
// valid and records nothing.
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Dataset metrics
	DatasetUploads     metric.Int64Counter
	RowsIngested       metric.Int64Counter
	DatasetsActive     metric.Int64UpDownCounter
	DatasetQueries     metric.Int64Counter
	DatasetTransforms  metric.Int64Counter
	ProcessingDuration metric.Float64Histogram
	DashboardsSaved    metric.Int64Counter
	DashboardsDeleted  metric.Int64Counter

	// WebSocket metrics
	WebSocketConnections metric.Int64UpDownCounter
	WebSocketMessages    metric.Int64Counter
	WebSocketDropped     metric.Int64Counter

	// System metrics
	SystemErrors metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m   BusinessMetrics
		err error
	)
	counter := func(dst *metric.Int64Counter, name, desc string, opts ...metric.Int64CounterOption) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Counter(name, append([]metric.Int64CounterOption{metric.WithDescription(desc)}, opts...)...)
	}
	upDown := func(dst *metric.Int64UpDownCounter, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	}
	histogram := func(dst *metric.Float64Histogram, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	}

	counter(&m.HTTPRequestsTotal, "http_requests_total", "Total number of HTTP requests")
	histogram(&m.HTTPRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds")
	upDown(&m.HTTPActiveRequests, "http_active_requests", "Number of active HTTP requests")

	counter(&m.DatasetUploads, "dataset_uploads_total", "Total number of dataset uploads")
	counter(&m.RowsIngested, "dataset_rows_ingested_total", "Total number of rows parsed from uploads")
	upDown(&m.DatasetsActive, "datasets_active", "Number of datasets held in memory")
	counter(&m.DatasetQueries, "dataset_queries_total", "Total number of table, aggregate, chart and export queries")
	counter(&m.DatasetTransforms, "dataset_transforms_total", "Total number of derived column transforms")
	histogram(&m.ProcessingDuration, "dataset_processing_duration_seconds", "Dataset processing duration in seconds")
	counter(&m.DashboardsSaved, "dashboards_saved_total", "Total number of dashboards saved")
	counter(&m.DashboardsDeleted, "dashboards_deleted_total", "Total number of dashboards deleted")

	upDown(&m.WebSocketConnections, "websocket_connections_active", "Number of open WebSocket connections")
	counter(&m.WebSocketMessages, "websocket_messages_total", "Total number of WebSocket messages sent")
	counter(&m.WebSocketDropped, "websocket_dropped_clients_total", "Total number of clients dropped for slow reads")

	counter(&m.SystemErrors, "system_errors_total", "Total number of system errors")

	if err != nil {
		return nil, err
	}
	return &m, nil
}

func statusAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("status", "failure")
	}
	return attribute.String("status", "success")
}

// RecordUpload records one dataset upload
func (m *BusinessMetrics) RecordUpload(ctx context.Context, fileType string, rows int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("file_type", fileType), statusAttr(err))
	m.DatasetUploads.Add(ctx, 1, attrs)
	m.ProcessingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("operation", "upload"), statusAttr(err)))
	if err != nil {
		m.SystemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.source", "upload")))
		return
	}
	m.RowsIngested.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("file_type", fileType)))
}

// RecordDatasetCount records datasets entering (+1) or leaving (-1) memory
func (m *BusinessMetrics) RecordDatasetCount(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.DatasetsActive.Add(ctx, delta)
}

// RecordQuery records a read over a dataset. kind is one of query,
// aggregate, chart, export or classify.
func (m *BusinessMetrics) RecordQuery(ctx context.Context, kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.DatasetQueries.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind), statusAttr(err)))
	m.ProcessingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("operation", kind), statusAttr(err)))
}

// RecordTransform records one transform request
func (m *BusinessMetrics) RecordTransform(ctx context.Context, derived int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.DatasetTransforms.Add(ctx, 1, metric.WithAttributes(attribute.Int("derived_columns", derived), statusAttr(err)))
	m.ProcessingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("operation", "transform"), statusAttr(err)))
}

// RecordDashboard records a dashboard save or delete
func (m *BusinessMetrics) RecordDashboard(ctx context.Context, action string) {
	if m == nil {
		return
	}
	switch action {
	case "saved":
		m.DashboardsSaved.Add(ctx, 1)
	case "deleted":
		m.DashboardsDeleted.Add(ctx, 1)
	}
}

// RecordHTTPRequest records a completed HTTP request
func (m *BusinessMetrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordError counts an error from the named source
func (m *BusinessMetrics) RecordError(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.SystemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("error.source", source)))
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// StartSpan starts a span on the global tracer
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
