// Package transport sends JSON-RPC calls to an MCP server over streamable
// HTTP.
//
// Every call is a POST whose answer may be a bare JSON-RPC response or a
// text/event-stream frame carrying it. The transport owns the request id
// counter and the session token for one endpoint, and never shares either.
//
// Usage:
//
//	cfg := transport.DefaultConfig("http://localhost:8080/mcp")
//	cfg.SessionMode = transport.SessionModeEventID
//	t, err := transport.New(cfg)
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/logging"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
)

// DefaultRequestTimeout bounds each call unless configured otherwise.
const DefaultRequestTimeout = 10 * time.Second

// Transport performs one JSON-RPC exchange at a time against a fixed endpoint.
type Transport interface {
	// Invoke sends a request and returns the server's response. A response
	// carrying an error object is returned as-is, not as a Go error.
	Invoke(ctx context.Context, method string, params interface{}) (*protocol.Response, error)

	// Notify sends a notification. Notifications consume no request id.
	Notify(ctx context.Context, method string, params interface{}) error

	// SessionID returns the session token, or "" before one is issued.
	SessionID() string

	// Endpoint returns the URL calls are posted to.
	Endpoint() string
}

// SessionMode selects where the session token is read from on the
// initialize response.
type SessionMode string

const (
	// SessionModeHeader reads the Mcp-Session-Id response header.
	SessionModeHeader SessionMode = "header"
	// SessionModeEventID reads the id of the streaming event carrying the
	// initialize response and keeps the part before its first underscore.
	SessionModeEventID SessionMode = "event-id"
)

// ParseSessionMode converts a configuration string to a SessionMode.
func ParseSessionMode(s string) (SessionMode, error) {
	switch SessionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SessionModeHeader:
		return SessionModeHeader, nil
	case SessionModeEventID, "eventid", "legacy":
		return SessionModeEventID, nil
	default:
		return SessionModeHeader, fmt.Errorf("unknown session mode %q (want %q or %q)", s, SessionModeHeader, SessionModeEventID)
	}
}

// Config configures a streamable HTTP transport.
type Config struct {
	Endpoint    string
	SessionMode SessionMode

	// RequestTimeout bounds each call, including reading the body.
	RequestTimeout time.Duration

	// Headers are added to every request.
	Headers map[string]string

	// StrictEnvelope validates every response against the JSON-RPC
	// response envelope schema.
	StrictEnvelope bool

	HTTPClient *http.Client
	Logger     logging.Logger

	// Middleware wraps the transport, first entry outermost.
	Middleware []Middleware
}

// DefaultConfig returns a header-mode configuration for endpoint.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:       endpoint,
		SessionMode:    SessionModeHeader,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return mcperrors.InvalidConfiguration("endpoint", "must not be empty")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return mcperrors.InvalidConfiguration("endpoint", err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return mcperrors.InvalidConfiguration("endpoint", fmt.Sprintf("scheme %q is not http or https", u.Scheme))
	}
	if u.Host == "" {
		return mcperrors.InvalidConfiguration("endpoint", "missing host")
	}
	if c.RequestTimeout < 0 {
		return mcperrors.InvalidConfiguration("request timeout", "must not be negative")
	}
	switch c.SessionMode {
	case "", SessionModeHeader, SessionModeEventID:
	default:
		return mcperrors.InvalidConfiguration("session mode", string(c.SessionMode))
	}
	return nil
}

// New builds a transport from cfg and applies its middleware.
func New(cfg Config) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var t Transport = newStreamableHTTP(cfg)
	if len(cfg.Middleware) > 0 {
		t = ChainMiddleware(cfg.Middleware...).Wrap(t)
	}
	return t, nil
}
