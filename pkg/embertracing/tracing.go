// Package embertracing provides OpenTelemetry distributed tracing for the
// compiler: spans around compilation, cache lookups, and watch-mode
// rebuilds, exported to stdout (development) or an OTLP collector
// (production).
package embertracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the settings embertracing needs to stand up a tracer
// provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Exporter selects "stdout" or "otlp".
	Exporter string
	// OTLPEndpoint is used only when Exporter == "otlp".
	OTLPEndpoint string

	// SamplingRate is in [0.0, 1.0]; 1.0 samples every compilation.
	SamplingRate float64

	Enabled bool
}

// DefaultConfig returns development-friendly settings: stdout exporter,
// full sampling.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "emberc",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		Exporter:       "stdout",
		SamplingRate:   1.0,
		Enabled:        true,
	}
}

// TracerProvider wraps the OpenTelemetry SDK tracer provider for one
// compiler process.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	config   *Config
}

// Init stands up the tracer provider described by config and installs it
// as the global OpenTelemetry provider/propagator. The returned
// TracerProvider must be Shutdown when the process exits.
func Init(config *Config) (*TracerProvider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &TracerProvider{provider: sdktrace.NewTracerProvider(), config: config}, nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch config.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		if config.OTLPEndpoint == "" {
			config.OTLPEndpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(config.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		exporter, err = otlptrace.New(context.Background(), client)
	default:
		return nil, fmt.Errorf("embertracing: unsupported exporter %q", config.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("embertracing: create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("embertracing: build resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{provider: tp, config: config}, nil
}

// Shutdown flushes and stops the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

// Tracer returns a named tracer from this provider.
func (tp *TracerProvider) Tracer(name string) trace.Tracer {
	if tp.provider == nil {
		return otel.Tracer(name)
	}
	return tp.provider.Tracer(name)
}

const instrumentationName = "emberc/compiler"

// Tracer returns the compiler's default global tracer.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span under the default tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// WithSpan runs fn inside a span named name, recording fn's error (if any)
// on the span before returning it.
func WithSpan(ctx context.Context, name string, fn func(context.Context) error, opts ...trace.SpanStartOption) error {
	ctx, span := StartSpan(ctx, name, opts...)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// SetAttributes sets attributes on the span stored in ctx.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}

// AddEvent adds a named event to the span stored in ctx.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// CompileAttributes returns the standard attribute set recorded on a
// compile span.
func CompileAttributes(unitName string, sourceBytes int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("ember.unit", unitName),
		attribute.Int("ember.source_bytes", sourceBytes),
	}
}

// TraceID extracts the hex trace ID from ctx's current span, or "" if none.
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
