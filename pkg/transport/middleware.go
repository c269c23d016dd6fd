package transport

import (
	"context"
	"time"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/logging"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
)

// Middleware wraps a transport to add behaviour around each call.
type Middleware interface {
	Wrap(transport Transport) Transport
}

// MiddlewareFunc is an adapter to allow the use of ordinary functions as middleware
type MiddlewareFunc func(Transport) Transport

// Wrap implements the Middleware interface
func (f MiddlewareFunc) Wrap(t Transport) Transport {
	return f(t)
}

// ChainMiddleware chains multiple middleware together
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(transport Transport) Transport {
		// Apply in reverse so the first middleware is the outermost
		for i := len(middleware) - 1; i >= 0; i-- {
			transport = middleware[i].Wrap(transport)
		}
		return transport
	})
}

// Base delegates every method to Next. Middleware embed it and override
// the calls they decorate.
type Base struct {
	Next Transport
}

func (b *Base) Invoke(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	return b.Next.Invoke(ctx, method, params)
}

func (b *Base) Notify(ctx context.Context, method string, params interface{}) error {
	return b.Next.Notify(ctx, method, params)
}

func (b *Base) SessionID() string { return b.Next.SessionID() }

func (b *Base) Endpoint() string { return b.Next.Endpoint() }

// LoggingMiddleware logs every call with its duration. Failed calls and
// error responses are logged at warn level.
func LoggingMiddleware(logger logging.Logger) Middleware {
	return MiddlewareFunc(func(next Transport) Transport {
		return &loggingTransport{
			Base:   Base{Next: next},
			logger: logger.WithFields(logging.String("endpoint", next.Endpoint())),
		}
	})
}

type loggingTransport struct {
	Base
	logger logging.Logger
}

func (l *loggingTransport) Invoke(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	start := time.Now()
	resp, err := l.Next.Invoke(ctx, method, params)

	log := l.logger.WithContext(ctx).WithFields(
		logging.String("method", method),
		logging.Duration("duration", time.Since(start)),
	)
	switch {
	case err != nil:
		log.WithError(err).Warn("call failed")
	case resp.Error != nil:
		log.Warn("call returned error response",
			logging.Int("rpc_code", int(resp.Error.Code)),
			logging.String("rpc_message", resp.Error.Message))
	default:
		log.Debug("call succeeded")
	}
	return resp, err
}

func (l *loggingTransport) Notify(ctx context.Context, method string, params interface{}) error {
	err := l.Next.Notify(ctx, method, params)
	if err != nil {
		l.logger.WithContext(ctx).WithError(err).Warn("notification failed", logging.String("method", method))
	}
	return err
}
