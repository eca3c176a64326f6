// Package observability provides OpenTelemetry tracing and Prometheus
// metrics for castgraph.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the castgraph tracer.
	TracerName = "github.com/efebarandurmaz/castgraph"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "castgraph")
	ServiceName string `mapstructure:"service_name"`

	ServiceVersion string `mapstructure:"service_version"`

	// Environment is the deployment environment (dev, staging, prod)
	Environment string `mapstructure:"environment"`

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317").
	// If empty, tracing is disabled.
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "castgraph",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	// If no endpoint, return no-op tracer
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	// Create OTLP exporter
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(), // Use TLS in production
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// newSampler follows the parent's decision and samples root spans at
// rate, clamped to [0, 1].
func newSampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Shutdown flushes pending spans and stops the exporter.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// SpanKind constants for castgraph operations.
const (
	SpanKindAnalysis = "analysis"
	SpanKindSection  = "section"
	SpanKindStore    = "store"
)

// StartAnalysisSpan starts a span for one analysis over a graph.
func StartAnalysisSpan(ctx context.Context, analysis string, nodes, edges int) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("analysis.%s", analysis),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("castgraph.analysis.name", analysis),
			attribute.String("castgraph.span.kind", SpanKindAnalysis),
			attribute.Int("graph.nodes", nodes),
			attribute.Int("graph.edges", edges),
		),
	)
	return ctx, span
}

// RecordAnalysisResult records the outcome of an analysis on a span. A
// solver that stopped at its iteration cap marks the span as errored.
func RecordAnalysisResult(span trace.Span, converged bool, iterations, items int) {
	span.SetAttributes(
		attribute.Bool("analysis.converged", converged),
		attribute.Int("analysis.iterations", iterations),
		attribute.Int("analysis.items", items),
	)
	if !converged {
		span.SetStatus(codes.Error, "did not converge")
	}
}

// StartSectionSpan starts a span for the analysis of one narrative
// section.
func StartSectionSpan(ctx context.Context, section string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "section.analyze",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("castgraph.span.kind", SpanKindSection),
			attribute.String("section.name", section),
		),
	)
	return ctx, span
}

// StartStoreSpan starts a span for a call to an external store.
func StartStoreSpan(ctx context.Context, backend, operation string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("%s.%s", backend, operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("castgraph.span.kind", SpanKindStore),
			attribute.String("store.backend", backend),
			attribute.String("store.operation", operation),
		),
	)
	return ctx, span
}

// RecordStoreResult records how many items a store call touched.
func RecordStoreResult(span trace.Span, items int) {
	span.SetAttributes(attribute.Int("store.items", items))
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
