package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
)

// recordedRequest is what the fake server saw for one POST.
type recordedRequest struct {
	Method    string
	ID        *int64
	SessionID string
	Header    http.Header
}

// fakeServer answers each POST with the handler registered for its method.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{handlers: map[string]http.HandlerFunc{}}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) handle(method string, h http.HandlerFunc) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.handlers[method] = h
}

func (fs *fakeServer) recorded() []recordedRequest {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]recordedRequest(nil), fs.requests...)
}

func (fs *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	var msg struct {
		ID     *int64 `json:"id"`
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fs.mu.Lock()
	fs.requests = append(fs.requests, recordedRequest{
		Method:    msg.Method,
		ID:        msg.ID,
		SessionID: r.Header.Get(protocol.SessionIDHeader),
		Header:    r.Header.Clone(),
	})
	h, ok := fs.handlers[msg.Method]
	fs.mu.Unlock()

	if !ok {
		if msg.ID == nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		writeJSON(w, rpcError(*msg.ID, -32601, "Method not found"))
		return
	}
	r.Header.Set("X-Test-Request-Id", idString(msg.ID))
	h(w, r)
}

func idString(id *int64) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%d", *id)
}

func requestID(r *http.Request) int64 {
	var id int64
	_, _ = fmt.Sscanf(r.Header.Get("X-Test-Request-Id"), "%d", &id)
	return id
}

func rpcResult(id int64, result string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, id, result)
}

func rpcError(id int64, code int, message string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"error":{"code":%d,"message":%q}}`, id, code, message)
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func writeSSE(w http.ResponseWriter, eventID string, payloads ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, p := range payloads {
		_, _ = fmt.Fprintf(w, "event: message\n")
		if eventID != "" {
			_, _ = fmt.Fprintf(w, "id: %s\n", eventID)
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", p)
	}
}

const initializeResult = `{"protocolVersion":"2025-03-26","capabilities":{"tools":{"listChanged":true}},"serverInfo":{"name":"fake","version":"0.1.0"}}`
