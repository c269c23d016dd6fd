// Package testutil holds fixtures shared by the package tests: a scriptable
// MCP server over httptest and a goroutine leak detector.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Failure selects how the fake server fails one method.
type Failure int

const (
	// FailNone answers normally.
	FailNone Failure = iota
	// FailRPCError answers with a JSON-RPC error object.
	FailRPCError
	// FailHTTPStatus answers with HTTP 500.
	FailHTTPStatus
	// FailHang never answers; the request ends when the client gives up.
	FailHang
	// FailMalformed answers with a body that is not JSON-RPC.
	FailMalformed
)

// Session modes for WithSessionMode.
const (
	SessionHeader  = "header"
	SessionEventID = "event-id"
	SessionNone    = "none"
)

// RecordedRequest is one POST the fake server received.
type RecordedRequest struct {
	Method    string
	ID        json.RawMessage
	Params    json.RawMessage
	SessionID string
}

// FakeServer is a scriptable MCP server. Its behaviour is fixed at
// construction time through options.
type FakeServer struct {
	*httptest.Server

	name            string
	version         string
	protocolVersion string
	capabilities    string
	tools           []string
	resources       []string
	prompts         []string
	roots           []string
	pageSize        int
	sessionMode     string
	sessionID       string
	streaming       bool
	requireSession  bool
	failures        map[string]Failure
	stuckCursors    map[string]string

	mu       sync.Mutex
	requests []RecordedRequest
	events   int
}

// FakeOption configures a FakeServer.
type FakeOption func(*FakeServer)

// WithServerInfo sets serverInfo.
func WithServerInfo(name, version string) FakeOption {
	return func(s *FakeServer) { s.name, s.version = name, version }
}

// WithProtocolVersion sets the negotiated protocol version.
func WithProtocolVersion(v string) FakeOption {
	return func(s *FakeServer) { s.protocolVersion = v }
}

// WithCapabilities sets the raw capabilities object.
func WithCapabilities(raw string) FakeOption {
	return func(s *FakeServer) { s.capabilities = raw }
}

// WithTools sets the raw tool objects, served in the given order.
func WithTools(raw ...string) FakeOption {
	return func(s *FakeServer) { s.tools = raw }
}

// WithResources sets the raw resource objects.
func WithResources(raw ...string) FakeOption {
	return func(s *FakeServer) { s.resources = raw }
}

// WithPrompts sets the raw prompt objects.
func WithPrompts(raw ...string) FakeOption {
	return func(s *FakeServer) { s.prompts = raw }
}

// WithRoots sets the raw root objects.
func WithRoots(raw ...string) FakeOption {
	return func(s *FakeServer) { s.roots = raw }
}

// WithPageSize splits list results into pages of n entries.
func WithPageSize(n int) FakeOption {
	return func(s *FakeServer) { s.pageSize = n }
}

// WithSessionMode selects how the session token is issued.
func WithSessionMode(mode string) FakeOption {
	return func(s *FakeServer) { s.sessionMode = mode }
}

// WithSessionID sets the token issued on initialize.
func WithSessionID(id string) FakeOption {
	return func(s *FakeServer) { s.sessionID = id }
}

// WithStreaming answers with event-stream frames instead of bare JSON.
func WithStreaming(enabled bool) FakeOption {
	return func(s *FakeServer) { s.streaming = enabled }
}

// WithRequireSession rejects calls after initialize that do not carry the
// issued token.
func WithRequireSession(enabled bool) FakeOption {
	return func(s *FakeServer) { s.requireSession = enabled }
}

// WithFailure makes method fail as f.
func WithFailure(method string, f Failure) FakeOption {
	return func(s *FakeServer) { s.failures[method] = f }
}

// WithRepeatedCursor makes every page of method carry cursor as its
// nextCursor, so a client following cursors sees the same one twice.
func WithRepeatedCursor(method, cursor string) FakeOption {
	return func(s *FakeServer) { s.stuckCursors[method] = cursor }
}

// NewFakeServer starts a fake server that is closed when the test ends.
func NewFakeServer(t testing.TB, opts ...FakeOption) *FakeServer {
	t.Helper()
	s := &FakeServer{
		name:            "fake-server",
		version:         "1.0.0",
		protocolVersion: "2025-03-26",
		capabilities:    `{"tools":{"listChanged":false}}`,
		sessionMode:     SessionHeader,
		sessionID:       "fake-session",
		failures:        map[string]Failure{},
		stuckCursors:    map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Requests returns the requests received so far.
func (s *FakeServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Methods returns the methods received so far, in order.
func (s *FakeServer) Methods() []string {
	var methods []string
	for _, r := range s.Requests() {
		methods = append(methods, r.Method)
	}
	return methods
}

func (s *FakeServer) serve(w http.ResponseWriter, r *http.Request) {
	var msg struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:    msg.Method,
		ID:        msg.ID,
		Params:    msg.Params,
		SessionID: r.Header.Get("Mcp-Session-Id"),
	})
	s.mu.Unlock()

	if len(msg.ID) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch s.failures[msg.Method] {
	case FailRPCError:
		s.write(w, msg.ID, "", `{"code":-32603,"message":"forced failure"}`)
		return
	case FailHTTPStatus:
		http.Error(w, "forced failure", http.StatusInternalServerError)
		return
	case FailHang:
		<-r.Context().Done()
		return
	case FailMalformed:
		_, _ = w.Write([]byte("<html>not json-rpc</html>"))
		return
	}

	if s.requireSession && msg.Method != "initialize" && s.sessionMode != SessionNone &&
		r.Header.Get("Mcp-Session-Id") != s.sessionID {
		http.Error(w, "missing or unknown session", http.StatusBadRequest)
		return
	}

	switch msg.Method {
	case "initialize":
		if s.sessionMode == SessionHeader {
			w.Header().Set("Mcp-Session-Id", s.sessionID)
		}
		result := fmt.Sprintf(`{"protocolVersion":%q,"capabilities":%s,"serverInfo":{"name":%q,"version":%q}}`,
			s.protocolVersion, s.capabilities, s.name, s.version)
		s.write(w, msg.ID, result, "")
	case "tools/list":
		s.write(w, msg.ID, s.page(msg.Method, "tools", s.tools, msg.Params), "")
	case "resources/list":
		s.write(w, msg.ID, s.page(msg.Method, "resources", s.resources, msg.Params), "")
	case "prompts/list":
		s.write(w, msg.ID, s.page(msg.Method, "prompts", s.prompts, msg.Params), "")
	case "roots/list":
		s.write(w, msg.ID, s.page(msg.Method, "roots", s.roots, msg.Params), "")
	case "ping":
		s.write(w, msg.ID, `{}`, "")
	default:
		s.write(w, msg.ID, "", `{"code":-32601,"message":"Method not found"}`)
	}
}

// page renders one page of items starting at the cursor in params.
func (s *FakeServer) page(method, key string, items []string, params json.RawMessage) string {
	start := 0
	if len(params) > 0 {
		var p struct {
			Cursor string `json:"cursor"`
		}
		if json.Unmarshal(params, &p) == nil && p.Cursor != "" {
			start, _ = strconv.Atoi(strings.TrimPrefix(p.Cursor, "page-"))
		}
	}
	if start > len(items) {
		start = len(items)
	}

	end := len(items)
	if s.pageSize > 0 && start+s.pageSize < end {
		end = start + s.pageSize
	}

	out := fmt.Sprintf(`{%q:[%s]`, key, strings.Join(items[start:end], ","))
	if stuck, ok := s.stuckCursors[method]; ok {
		out += fmt.Sprintf(`,"nextCursor":%q`, stuck)
	} else if end < len(items) {
		out += fmt.Sprintf(`,"nextCursor":"page-%d"`, end)
	}
	return out + "}"
}

func (s *FakeServer) write(w http.ResponseWriter, id json.RawMessage, result, rpcErr string) {
	body := fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"result":%s}`, id, result)
	if rpcErr != "" {
		body = fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"error":%s}`, id, rpcErr)
	}

	if !s.streaming && s.sessionMode != SessionEventID {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
		return
	}

	s.mu.Lock()
	s.events++
	n := s.events
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	_, _ = fmt.Fprintf(w, "event: message\n")
	if s.sessionMode == SessionEventID {
		_, _ = fmt.Fprintf(w, "id: %s_%d\n", s.sessionID, n)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", body)
}
