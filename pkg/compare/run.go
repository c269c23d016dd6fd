package compare

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/client"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/fingerprint"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/logging"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/observability"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/transport"
)

type options struct {
	fingerprint     []fingerprint.Option
	logger          logging.Logger
	metrics         *observability.Metrics
	tracer          trace.Tracer
	runID           string
	transportConfig func(Side, *transport.Config)
	clientOptions   []client.Option
}

// Option configures Compare and Run.
type Option func(*options)

func newOptions(opts []Option) options {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(observability.TracerName)
	}
	return o
}

// WithFingerprintOptions passes options to the canonicalizer.
func WithFingerprintOptions(opts ...fingerprint.Option) Option {
	return func(o *options) { o.fingerprint = append(o.fingerprint, opts...) }
}

// WithLogger sets the logger used by Run and the clients it builds.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records call, retrieval and verdict metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer overrides the tracer; the global provider is used otherwise.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithRunID sets the run id instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// WithTransportConfig adjusts the transport configuration of each side
// before it is built.
func WithTransportConfig(fn func(Side, *transport.Config)) Option {
	return func(o *options) { o.transportConfig = fn }
}

// WithClientOptions passes options to both clients.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *options) { o.clientOptions = append(o.clientOptions, opts...) }
}

// Run retrieves both descriptors concurrently and compares them. It fails
// only when an endpoint cannot be configured; an unreachable server is a
// difference, not an error. The returned descriptors are normalized.
func Run(ctx context.Context, endpointA, endpointB string, opts ...Option) (*Report, [2]*descriptor.Descriptor, error) {
	o := newOptions(opts)
	var descriptors [2]*descriptor.Descriptor

	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logging.ContextWithRunID(ctx, runID)
	logger := o.logger.WithContext(ctx)

	ctx, span := o.tracer.Start(ctx, "mcpcompare.run", trace.WithAttributes(
		attribute.String("mcp.run_id", runID),
		attribute.String("mcp.endpoint_a", endpointA),
		attribute.String("mcp.endpoint_b", endpointB),
	))
	defer span.End()

	var clients [2]*client.Client
	for i, endpoint := range [2]string{endpointA, endpointB} {
		c, err := o.newClient(Side(i), endpoint)
		if err != nil {
			observability.RecordError(span, err)
			return nil, descriptors, err
		}
		clients[i] = c
	}

	var g errgroup.Group
	for i := range clients {
		i := i
		g.Go(func() error {
			start := time.Now()
			d := descriptor.Normalize(clients[i].RetrieveDescriptor(ctx))
			descriptors[i] = d
			o.recordRetrieval(d, time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	report := Compare(descriptors[0], descriptors[1], opts...)
	report.RunID = runID

	if o.metrics != nil {
		o.metrics.RecordComparison(report.Verdict())
	}
	span.SetAttributes(
		attribute.Bool("mcp.equivalent", report.Equivalent),
		attribute.Int("mcp.differences", len(report.Differences)),
	)
	logger.Info("comparison finished",
		logging.Bool("equivalent", report.Equivalent),
		logging.String("digest_a", report.Digest1),
		logging.String("digest_b", report.Digest2),
		logging.Int("differences", len(report.Differences)))

	return report, descriptors, nil
}

func (o options) newClient(side Side, endpoint string) (*client.Client, error) {
	cfg := transport.DefaultConfig(endpoint)
	cfg.Logger = o.logger
	if o.transportConfig != nil {
		o.transportConfig(side, &cfg)
	}
	cfg.Middleware = append(cfg.Middleware,
		transport.LoggingMiddleware(o.logger),
		observability.NewMiddleware(observability.MiddlewareConfig{Metrics: o.metrics, Tracer: o.tracer}),
	)

	tr, err := transport.New(cfg)
	if err != nil {
		return nil, err
	}
	clientOpts := append([]client.Option{client.WithLogger(o.logger)}, o.clientOptions...)
	return client.New(tr, clientOpts...), nil
}

func (o options) recordRetrieval(d *descriptor.Descriptor, elapsed time.Duration) {
	if o.metrics == nil {
		return
	}
	outcome := "reachable"
	if !d.Reachable() {
		outcome = "unreachable"
	}
	o.metrics.RecordRetrieval(d.Endpoint, outcome, elapsed)
	if !d.Reachable() {
		return
	}
	o.metrics.RecordListed(d.Endpoint, descriptor.FieldTools, len(d.Tools))
	o.metrics.RecordListed(d.Endpoint, descriptor.FieldResources, len(d.Resources))
	o.metrics.RecordListed(d.Endpoint, descriptor.FieldPrompts, len(d.Prompts))
	o.metrics.RecordListed(d.Endpoint, descriptor.FieldRoots, len(d.Roots))
}
