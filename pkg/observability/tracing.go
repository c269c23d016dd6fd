// Package observability records metrics and traces for the calls made while
// retrieving and comparing server descriptors.
package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used for every span.
const TracerName = "github.com/ajitpratap0/mcp-fingerprint"

// TracingConfig selects where spans go and how many are kept.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string

	ExporterType ExporterType
	// Endpoint is the collector host:port for the OTLP exporters.
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of root spans kept. Zero keeps all of them.
	SampleRate float64
}

// ExporterType names a span exporter.
type ExporterType string

const (
	ExporterTypeOTLPGRPC ExporterType = "otlp-grpc"
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	// ExporterTypeNoop records spans for in-process readers but exports
	// nothing.
	ExporterTypeNoop ExporterType = "noop"
)

// ParseExporterType converts a configuration string to an ExporterType. The
// empty string selects the noop exporter.
func ParseExporterType(s string) (ExporterType, error) {
	switch t := ExporterType(s); t {
	case "", ExporterTypeNoop:
		return ExporterTypeNoop, nil
	case ExporterTypeOTLPGRPC, ExporterTypeOTLPHTTP:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported exporter type: %s", s)
	}
}

// TracingProvider owns an SDK tracer provider and installs it globally.
type TracingProvider struct {
	config TracingConfig
	tracer trace.Tracer

	mu       sync.Mutex
	shutdown func(context.Context) error
}

// NewTracingProvider builds the exporter named by config and installs the
// resulting provider with otel.SetTracerProvider.
func NewTracingProvider(config TracingConfig) (*TracingProvider, error) {
	if config.ServiceName == "" {
		config.ServiceName = "mcpcompare"
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = "unknown"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 1.0
	}

	exporter, err := newExporter(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		)),
		sdktrace.WithSampler(samplerFor(config.SampleRate)),
	)
	otel.SetTracerProvider(tp)

	return &TracingProvider{
		config:   config,
		tracer:   tp.Tracer(TracerName),
		shutdown: tp.Shutdown,
	}, nil
}

func newExporter(ctx context.Context, config TracingConfig) (sdktrace.SpanExporter, error) {
	var client otlptrace.Client
	switch config.ExporterType {
	case ExporterTypeNoop, "":
		return noopExporter{}, nil
	case ExporterTypeOTLPGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		client = otlptracegrpc.NewClient(opts...)
	case ExporterTypeOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		client = otlptracehttp.NewClient(opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", config.ExporterType)
	}
	return otlptrace.New(ctx, client)
}

// samplerFor keeps child spans with their parent so a comparison run is
// traced whole or not at all.
func samplerFor(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0.0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// Tracer returns the tracer spans are started from.
func (tp *TracingProvider) Tracer() trace.Tracer { return tp.tracer }

// Shutdown flushes pending spans and stops the exporter.
func (tp *TracingProvider) Shutdown(ctx context.Context) error {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.shutdown == nil {
		return nil
	}
	err := tp.shutdown(ctx)
	tp.shutdown = nil
	return err
}

// StartCallSpan starts a client span for one JSON-RPC method.
func StartCallSpan(ctx context.Context, tracer trace.Tracer, method, endpoint string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "mcp."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("mcp.endpoint", endpoint),
		),
	)
}

// RecordError marks span as failed.
func RecordError(span trace.Span, err error) {
	if span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

type noopExporter struct{}

func (noopExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (noopExporter) Shutdown(context.Context) error { return nil }
