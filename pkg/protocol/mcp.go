package protocol

import (
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

const (
	// ProtocolRevision is the revision requested during initialize
	ProtocolRevision = "2025-03-26"

	// Methods for lifecycle management
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"

	// Methods for capability discovery
	MethodListTools     = "tools/list"
	MethodListResources = "resources/list"
	MethodListPrompts   = "prompts/list"
	MethodListRoots     = "roots/list"

	// Methods for utilities
	MethodPing = "ping"
)

// SessionIDHeader carries the session token once the server has issued one.
const SessionIDHeader = "Mcp-Session-Id"

// Implementation names a client or server and its version.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    value.Value    `json:"capabilities"`
	ClientInfo      Implementation `json:"clientInfo"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    value.Value    `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

// PaginatedParams is sent with list requests when continuing from a cursor.
type PaginatedParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// Tool is a tool entry as listed by a server. Fields beyond these are dropped.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema value.Value `json:"inputSchema"`
}

// ListToolsResult is the result of tools/list
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// Resource is a resource entry as listed by a server. Concrete resources
// carry a uri, templated ones a uriTemplate.
type Resource struct {
	URI         string `json:"uri,omitempty"`
	URITemplate string `json:"uriTemplate,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListResourcesResult is the result of resources/list
type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// Prompt is a prompt entry as listed by a server.
type Prompt struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Arguments   value.Value `json:"arguments"`
}

// ListPromptsResult is the result of prompts/list
type ListPromptsResult struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// Root is a filesystem root entry.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// ListRootsResult is the result of roots/list
type ListRootsResult struct {
	Roots []Root `json:"roots"`
}
