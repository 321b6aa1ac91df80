package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
)

// OpenTelemetryConfig holds OpenTelemetry configuration
type OpenTelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Tracing configuration
	TracingEnabled bool
	OTLPEndpoint   string
	OTLPInsecure   bool
	SamplingRate   float64

	// MetricsEnabled bridges OTel instruments into the Prometheus registry
	MetricsEnabled bool
}

// NewOpenTelemetryConfig derives the telemetry settings from application config
func NewOpenTelemetryConfig(cfg *config.Config) OpenTelemetryConfig {
	return OpenTelemetryConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		TracingEnabled: cfg.Monitoring.EnableTracing,
		OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
		OTLPInsecure:   cfg.Monitoring.OTLPInsecure,
		SamplingRate:   cfg.Monitoring.SamplingRate,
		MetricsEnabled: cfg.Monitoring.EnableMetrics,
	}
}

// OpenTelemetryProvider owns the tracer and meter providers
type OpenTelemetryProvider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	logger         *zap.Logger
	config         OpenTelemetryConfig
}

// NewOpenTelemetryProvider installs global tracer and meter providers.
// Disabled parts leave the otel no-op providers in place.
func NewOpenTelemetryProvider(ctx context.Context, cfg OpenTelemetryConfig, registerer prometheus.Registerer, logger *zap.Logger) (*OpenTelemetryProvider, error) {
	provider := &OpenTelemetryProvider{
		logger: logger.Named("otel"),
		config: cfg,
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	if cfg.TracingEnabled {
		if err := provider.initializeTracing(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.MetricsEnabled {
		if err := provider.initializeMetrics(res, registerer); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	provider.logger.Info("OpenTelemetry provider initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.ServiceVersion),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
	)
	return provider, nil
}

// initializeTracing exports spans over OTLP/HTTP
func (o *OpenTelemetryProvider) initializeTracing(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(o.config.OTLPEndpoint)}
	if o.config.OTLPInsecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(o.config.SamplingRate))),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(o.tracerProvider)

	o.logger.Info("OTLP trace exporter configured",
		zap.String("endpoint", o.config.OTLPEndpoint),
		zap.Float64("sampling_rate", o.config.SamplingRate),
	)
	return nil
}

// initializeMetrics exposes OTel instruments, including otelhttp's, through Prometheus
func (o *OpenTelemetryProvider) initializeMetrics(res *resource.Resource, registerer prometheus.Registerer) error {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	o.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(o.meterProvider)
	return nil
}

// Tracer returns a tracer from the global provider
func (o *OpenTelemetryProvider) Tracer(name string) trace.Tracer {
	return otel.Tracer(name, trace.WithInstrumentationVersion(o.config.ServiceVersion))
}

// Meter returns a meter from the global provider
func (o *OpenTelemetryProvider) Meter(name string) metric.Meter {
	return otel.Meter(name, metric.WithInstrumentationVersion(o.config.ServiceVersion))
}

// InstrumentHTTPHandler wraps handler with otelhttp server spans and metrics
func (o *OpenTelemetryProvider) InstrumentHTTPHandler(handler http.Handler, operation string) http.Handler {
	return otelhttp.NewHandler(handler, operation)
}

// Shutdown flushes and stops both providers
func (o *OpenTelemetryProvider) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	o.logger.Info("OpenTelemetry provider shutdown completed")
	return nil
}
