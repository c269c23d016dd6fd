// Package descriptor holds the capability snapshot retrieved from one server
// and the normalizer that makes it structurally complete.
package descriptor

import (
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

// ServerInfo is the identity a server reports during initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolSpec describes one tool.
type ToolSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema value.Value `json:"inputSchema"`
}

// ResourceSpec describes one resource. URITemplate holds the template, or the
// concrete uri for resources listed without one.
type ResourceSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
	URITemplate string `json:"uriTemplate"`
}

// PromptSpec describes one prompt.
type PromptSpec struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Arguments   value.Value `json:"arguments"`
}

// RootSpec describes one root. Roots are diagnostic and never fingerprinted.
type RootSpec struct {
	Name string `json:"name,omitempty"`
	URI  string `json:"uri"`
}

// Label returns the name of the root, or its uri when unnamed.
func (r RootSpec) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.URI
}

// CallFailure records a discovery call that failed without aborting retrieval.
type CallFailure struct {
	Method string `json:"method"`
	Error  string `json:"error"`
}

// Descriptor is the capability snapshot of one server.
//
// A nil list means the call that fills it failed or was never made; an empty
// non-nil list means the server answered with no entries. Normalize turns
// the former into the latter and records which fields it filled.
type Descriptor struct {
	Endpoint        string         `json:"endpoint,omitempty"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
	ProtocolVersion string         `json:"protocolVersion"`
	Tools           []ToolSpec     `json:"tools"`
	Resources       []ResourceSpec `json:"resources"`
	Prompts         []PromptSpec   `json:"prompts"`
	Roots           []RootSpec     `json:"roots"`
	Capabilities    value.Value    `json:"capabilities"`

	// Error is set when initialize failed. Such a descriptor has no
	// fingerprint.
	Error string `json:"error,omitempty"`

	Failures   []CallFailure `json:"failures,omitempty"`
	Defaulted  []string      `json:"defaulted,omitempty"`
	Normalized bool          `json:"normalized"`
}

// Failed builds the descriptor returned when initialize did not succeed.
func Failed(endpoint string, err error) *Descriptor {
	msg := "initialize failed"
	if err != nil {
		msg = err.Error()
	}
	return &Descriptor{Endpoint: endpoint, Error: msg}
}

// Reachable reports whether initialize succeeded.
func (d *Descriptor) Reachable() bool {
	return d != nil && d.Error == ""
}

// RecordFailure notes that method failed with err.
func (d *Descriptor) RecordFailure(method string, err error) {
	d.Failures = append(d.Failures, CallFailure{Method: method, Error: err.Error()})
}

// FailedMethod reports whether method is among the recorded failures.
func (d *Descriptor) FailedMethod(method string) bool {
	for _, f := range d.Failures {
		if f.Method == method {
			return true
		}
	}
	return false
}
