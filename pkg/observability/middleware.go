package observability

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/transport"
)

// Call status labels.
const (
	StatusOK       = "ok"
	StatusRPCError = "rpc_error"
)

// MiddlewareConfig selects what the middleware records. Nil members are
// skipped.
type MiddlewareConfig struct {
	Metrics *Metrics
	Tracer  trace.Tracer

	// CaptureRequestPayload adds the encoded params to each span.
	CaptureRequestPayload bool
}

// NewMiddleware returns transport middleware that records a metric sample
// and a client span for every call.
func NewMiddleware(config MiddlewareConfig) transport.Middleware {
	return transport.MiddlewareFunc(func(next transport.Transport) transport.Transport {
		return &observedTransport{
			Base:   transport.Base{Next: next},
			config: config,
		}
	})
}

type observedTransport struct {
	transport.Base
	config MiddlewareConfig
}

func (ot *observedTransport) Invoke(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	var span trace.Span
	if ot.config.Tracer != nil {
		ctx, span = StartCallSpan(ctx, ot.config.Tracer, method, ot.Endpoint())
		defer span.End()

		if ot.config.CaptureRequestPayload && params != nil {
			if payload, err := json.Marshal(params); err == nil {
				span.SetAttributes(attribute.String("rpc.request.payload", string(payload)))
			}
		}
	}

	start := time.Now()
	resp, err := ot.Next.Invoke(ctx, method, params)
	duration := time.Since(start)
	status := CallStatus(resp, err)

	if ot.config.Metrics != nil {
		ot.config.Metrics.RecordCall(ot.Endpoint(), method, status, duration)
	}
	if span != nil {
		span.SetAttributes(attribute.String("mcp.status", status))
		if session := ot.SessionID(); session != "" {
			span.SetAttributes(attribute.Bool("mcp.session", true))
		}
		switch {
		case err != nil:
			RecordError(span, err)
		case resp.Error != nil:
			span.SetAttributes(attribute.Int("rpc.jsonrpc.error_code", int(resp.Error.Code)))
			RecordError(span, resp.Error)
		}
	}
	return resp, err
}

func (ot *observedTransport) Notify(ctx context.Context, method string, params interface{}) error {
	var span trace.Span
	if ot.config.Tracer != nil {
		ctx, span = StartCallSpan(ctx, ot.config.Tracer, method, ot.Endpoint())
		defer span.End()
	}

	err := ot.Next.Notify(ctx, method, params)
	if ot.config.Metrics != nil {
		ot.config.Metrics.RecordNotification(ot.Endpoint(), method, CallStatus(nil, err))
	}
	if err != nil && span != nil {
		RecordError(span, err)
	}
	return err
}

// CallStatus labels the outcome of one exchange: "ok", "rpc_error", or the
// error category of a failed call.
func CallStatus(resp *protocol.Response, err error) string {
	if err != nil {
		if mcpErr, ok := mcperrors.AsMCPError(err); ok {
			return string(mcpErr.Category())
		}
		return string(mcperrors.CategoryInternal)
	}
	if resp != nil && resp.Error != nil {
		return StatusRPCError
	}
	return StatusOK
}
