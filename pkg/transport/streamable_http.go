package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/logging"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
)

// maxErrorBody caps how much of a failed response body is kept in the error.
const maxErrorBody = 512

// StreamableHTTP is the streamable HTTP transport for one endpoint.
type StreamableHTTP struct {
	cfg    Config
	client *http.Client
	logger logging.Logger

	mu        sync.Mutex
	nextID    int64
	sessionID string
}

func newStreamableHTTP(cfg Config) *StreamableHTTP {
	if cfg.SessionMode == "" {
		cfg.SessionMode = SessionModeHeader
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	return &StreamableHTTP{
		cfg:    cfg,
		client: client,
		logger: logger.WithFields(logging.String("component", "transport"), logging.String("endpoint", cfg.Endpoint)),
		nextID: 1,
	}
}

// Endpoint returns the URL calls are posted to.
func (t *StreamableHTTP) Endpoint() string { return t.cfg.Endpoint }

// SessionID returns the cached session token.
func (t *StreamableHTTP) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

func (t *StreamableHTTP) allocateID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	return id
}

// adoptSession caches token unless one is already held.
func (t *StreamableHTTP) adoptSession(token string) bool {
	if token == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sessionID != "" {
		return false
	}
	t.sessionID = token
	return true
}

// httpResult is a fully read HTTP response.
type httpResult struct {
	status      int
	header      http.Header
	contentType string
	body        []byte
}

// Invoke sends method with params and decodes the matching response.
func (t *StreamableHTTP) Invoke(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	id := t.allocateID()

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		return nil, mcperrors.ForCall(
			mcperrors.WrapError(err, mcperrors.CodeInvalidParams, fmt.Sprintf("cannot encode %s request", method), mcperrors.CategoryValidation, mcperrors.SeverityError),
			method, t.cfg.Endpoint, id)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	result, err := t.post(callCtx, payload, method != protocol.MethodInitialize)
	if err != nil {
		return nil, mcperrors.ForCall(t.classify(ctx, callCtx, method, err), method, t.cfg.Endpoint, id)
	}

	if result.status < 200 || result.status > 299 {
		snippet := result.body
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		cause := fmt.Errorf("%s", strings.TrimSpace(string(snippet)))
		if len(snippet) == 0 {
			cause = fmt.Errorf("%s", http.StatusText(result.status))
		}
		return nil, mcperrors.ForCall(mcperrors.HTTPTransportError(method, t.cfg.Endpoint, result.status, cause), method, t.cfg.Endpoint, id)
	}

	resp, eventID, err := t.decode(result, id)
	if err != nil {
		return nil, mcperrors.ForCall(mcperrors.MalformedResponse(method, result.contentType, err), method, t.cfg.Endpoint, id)
	}

	if method == protocol.MethodInitialize && resp.Error == nil {
		t.captureSession(result, eventID)
	}

	t.logger.Debug("call completed",
		logging.String("method", method),
		logging.Int64("request_id", id),
		logging.Int("status", result.status),
		logging.Bool("rpc_error", resp.Error != nil))
	return resp, nil
}

// Notify posts a notification and ignores any body.
func (t *StreamableHTTP) Notify(ctx context.Context, method string, params interface{}) error {
	n, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	result, err := t.post(callCtx, payload, true)
	if err != nil {
		return t.classify(ctx, callCtx, method, err)
	}
	if result.status < 200 || result.status > 299 {
		return mcperrors.HTTPTransportError(method, t.cfg.Endpoint, result.status, fmt.Errorf("%s", http.StatusText(result.status)))
	}
	return nil
}

func (t *StreamableHTTP) post(ctx context.Context, payload []byte, attachSession bool) (*httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
	if attachSession {
		if sessionID := t.SessionID(); sessionID != "" {
			req.Header.Set(protocol.SessionIDHeader, sessionID)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &sendError{err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			t.logger.Debug("error closing response body", logging.ErrorField(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &readError{status: resp.StatusCode, err: err}
	}

	return &httpResult{
		status:      resp.StatusCode,
		header:      resp.Header,
		contentType: resp.Header.Get("Content-Type"),
		body:        body,
	}, nil
}

// sendError marks a failure before any response arrived.
type sendError struct{ err error }

func (e *sendError) Error() string { return e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }

// readError marks a failure while reading the response body.
type readError struct {
	status int
	err    error
}

func (e *readError) Error() string { return e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

// classify maps a failed exchange onto the error taxonomy. The per-call
// deadline wins over other causes so a slow server always reads as a timeout.
func (t *StreamableHTTP) classify(parent, call context.Context, method string, err error) mcperrors.MCPError {
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return mcperrors.OperationTimeout(method, t.cfg.RequestTimeout, err)
	}
	if parent.Err() != nil {
		return mcperrors.OperationCancelled(method, err)
	}

	var re *readError
	if errors.As(err, &re) {
		return mcperrors.HTTPTransportError(method, t.cfg.Endpoint, re.status, re.err)
	}
	return mcperrors.ConnectionFailed(t.cfg.Endpoint, err)
}

// decode finds the response to request id in the body. A streaming frame is
// tried first; among its events the one answering id wins, otherwise the
// last response-shaped payload. Bodies without a frame are parsed as bare
// JSON.
func (t *StreamableHTTP) decode(result *httpResult, id int64) (*protocol.Response, string, error) {
	if len(bytes.TrimSpace(result.body)) == 0 {
		return nil, "", fmt.Errorf("empty response body (status %d)", result.status)
	}

	if looksLikeEventStream(result.body) {
		events, err := parseEventStream(bytes.NewReader(result.body))
		if err != nil {
			return nil, "", fmt.Errorf("reading event stream: %w", err)
		}

		var (
			fallback      *protocol.Response
			fallbackEvent event
		)
		for _, ev := range events {
			resp, err := protocol.ParseResponse([]byte(ev.Data))
			if err != nil {
				t.logger.Debug("skipping non-response event", logging.String("event", ev.Type), logging.ErrorField(err))
				continue
			}
			if resp.HasID(id) {
				if err := t.checkEnvelope([]byte(ev.Data)); err != nil {
					return nil, "", err
				}
				return resp, ev.ID, nil
			}
			fallback, fallbackEvent = resp, ev
		}
		if fallback == nil {
			return nil, "", fmt.Errorf("event stream carried no JSON-RPC response")
		}
		if err := t.checkEnvelope([]byte(fallbackEvent.Data)); err != nil {
			return nil, "", err
		}
		return fallback, fallbackEvent.ID, nil
	}

	resp, err := protocol.ParseResponse(result.body)
	if err != nil {
		return nil, "", err
	}
	if err := t.checkEnvelope(result.body); err != nil {
		return nil, "", err
	}
	return resp, "", nil
}

func (t *StreamableHTTP) checkEnvelope(raw []byte) error {
	if !t.cfg.StrictEnvelope {
		return nil
	}
	return protocol.ValidateResponseEnvelope(raw)
}

func (t *StreamableHTTP) captureSession(result *httpResult, eventID string) {
	var token string
	switch t.cfg.SessionMode {
	case SessionModeEventID:
		token = sessionFromEventID(eventID)
	default:
		token = result.header.Get(protocol.SessionIDHeader)
	}

	if t.adoptSession(token) {
		t.logger.Debug("session established", logging.String("session_mode", string(t.cfg.SessionMode)))
		return
	}
	if token == "" {
		t.logger.Debug("server issued no session token", logging.String("session_mode", string(t.cfg.SessionMode)))
	}
}

// Timeout returns the per-call timeout in effect.
func (t *StreamableHTTP) Timeout() time.Duration { return t.cfg.RequestTimeout }
