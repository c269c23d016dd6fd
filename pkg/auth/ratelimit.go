package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/transport"
)

// RateLimitConfig paces outgoing calls to one endpoint.
type RateLimitConfig struct {
	RequestsPerSecond float64
	// BurstSize is the number of calls allowed back to back. Values below
	// one are treated as one.
	BurstSize int
}

// Enabled reports whether the configuration limits anything.
func (c RateLimitConfig) Enabled() bool { return c.RequestsPerSecond > 0 }

// RateLimiter is a token bucket. Wait blocks until a token is available
// instead of rejecting the call.
type RateLimiter struct {
	mu         sync.Mutex
	rate       float64
	burst      float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// NewRateLimiter returns a full bucket.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	burst := float64(config.BurstSize)
	if burst < 1 {
		burst = 1
	}
	l := &RateLimiter{
		rate:  config.RequestsPerSecond,
		burst: burst,
		now:   time.Now,
	}
	l.tokens = burst
	l.lastRefill = l.now()
	return l
}

// reserve takes a token if one is available, or returns how long until one
// will be.
func (l *RateLimiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(l.lastRefill)
	l.tokens = min(l.tokens+elapsed.Seconds()*l.rate, l.burst)
	l.lastRefill = now

	if l.tokens >= 1.0 {
		l.tokens--
		return 0
	}
	return time.Duration((1.0 - l.tokens) / l.rate * float64(time.Second))
}

// Wait blocks until a call may proceed or ctx is done.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay := l.reserve()
		if delay <= 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Remaining returns the tokens left in the bucket.
func (l *RateLimiter) Remaining() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens
}

// RateLimitMiddleware paces every call and notification through one bucket.
// A disabled configuration returns the transport unchanged.
func RateLimitMiddleware(config RateLimitConfig) transport.Middleware {
	return transport.MiddlewareFunc(func(next transport.Transport) transport.Transport {
		if !config.Enabled() {
			return next
		}
		return &rateLimitedTransport{
			Base:    transport.Base{Next: next},
			limiter: NewRateLimiter(config),
		}
	})
}

type rateLimitedTransport struct {
	transport.Base
	limiter *RateLimiter
}

func (r *rateLimitedTransport) wait(ctx context.Context, method string) error {
	err := r.limiter.Wait(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return mcperrors.OperationTimeout(method, 0, err).WithDetail("waiting for rate limit")
	default:
		return mcperrors.OperationCancelled(method, err).WithDetail("waiting for rate limit")
	}
}

func (r *rateLimitedTransport) Invoke(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	if err := r.wait(ctx, method); err != nil {
		return nil, err
	}
	return r.Next.Invoke(ctx, method, params)
}

func (r *rateLimitedTransport) Notify(ctx context.Context, method string, params interface{}) error {
	if err := r.wait(ctx, method); err != nil {
		return err
	}
	return r.Next.Notify(ctx, method, params)
}
