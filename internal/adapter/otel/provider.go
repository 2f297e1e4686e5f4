package otel

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects how telemetry leaves the process. Exporter is either
// "stdout" (local development, pretty-printed spans) or "otlp" (an
// OTLP/HTTP collector endpoint taken from the standard OTEL_EXPORTER_*
// environment variables).
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Exporter       string
	Insecure       bool // plain HTTP to the OTLP collector
}

// ConfigFromEnv reads OTEL_SERVICE_NAME, OTEL_SERVICE_VERSION,
// OTEL_ENVIRONMENT, and OTEL_EXPORTER. Outside production the OTLP
// transport defaults to plain HTTP.
func ConfigFromEnv() Config {
	env := envOrDefault("OTEL_ENVIRONMENT", "development")
	return Config{
		ServiceName:    envOrDefault("OTEL_SERVICE_NAME", "fieldflow"),
		ServiceVersion: envOrDefault("OTEL_SERVICE_VERSION", "0.1.0"),
		Environment:    env,
		Exporter:       envOrDefault("OTEL_EXPORTER", "stdout"),
		Insecure:       env == "development",
	}
}

// Providers owns the globally registered tracer and meter providers.
// Shutdown flushes buffered telemetry and must run before exit.
type Providers struct {
	Shutdown func(ctx context.Context) error
}

// Setup builds the trace and metric pipelines for cfg and installs
// them as the process-wide defaults, so adapters only ever reach for
// otel.Tracer / otel.Meter.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building resource: %w", err)
	}

	spanExp, err := spanExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	metricExp, err := metricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithBatcher(spanExp),
	)
	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExp)),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Providers{
		Shutdown: func(ctx context.Context) error {
			return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
		},
	}, nil
}

func spanExporter(ctx context.Context, cfg Config) (trace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		var opts []otlptracehttp.Option
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return nil, fmt.Errorf("unknown exporter %q, want stdout or otlp", cfg.Exporter)
}

func metricExporter(ctx context.Context, cfg Config) (metric.Exporter, error) {
	switch cfg.Exporter {
	case "otlp":
		var opts []otlpmetrichttp.Option
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "stdout":
		return stdoutmetric.New()
	}
	return nil, fmt.Errorf("unknown exporter %q, want stdout or otlp", cfg.Exporter)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
