// Package auth supplies the client side of authenticated MCP endpoints:
// credentials that become request headers, and a token bucket that paces
// calls to servers which rate limit their clients.
package auth

import (
	"fmt"
	"strings"

	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
)

// Type selects how credentials are presented.
type Type string

const (
	TypeNone   Type = "none"
	TypeBearer Type = "bearer"
	TypeAPIKey Type = "apikey"
)

// DefaultAPIKeyHeader carries API keys unless another header is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// ParseType converts a configuration string to a Type. The empty string
// selects TypeNone.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", TypeNone:
		return TypeNone, nil
	case TypeBearer:
		return TypeBearer, nil
	case TypeAPIKey, "api-key", "api_key":
		return TypeAPIKey, nil
	default:
		return TypeNone, fmt.Errorf("unsupported auth type %q", s)
	}
}

// Credentials authenticate a client to one endpoint.
type Credentials struct {
	Type  Type
	Token string

	// Header names the API key header. Ignored for bearer tokens.
	Header string
}

// Validate checks that the credentials can produce a header.
func (c Credentials) Validate() error {
	switch c.Type {
	case "", TypeNone:
		return nil
	case TypeBearer, TypeAPIKey:
		if c.Token == "" {
			return mcperrors.InvalidConfiguration("auth token", fmt.Sprintf("required for %s auth", c.Type))
		}
		if strings.ContainsAny(c.Token, "\r\n") {
			return mcperrors.InvalidConfiguration("auth token", "contains a line break")
		}
		return nil
	default:
		return mcperrors.InvalidConfiguration("auth type", string(c.Type))
	}
}

// HeaderValue returns the header name and value the credentials add to every
// request. ok is false for TypeNone.
func (c Credentials) HeaderValue() (name, value string, ok bool) {
	switch c.Type {
	case TypeBearer:
		return "Authorization", "Bearer " + c.Token, true
	case TypeAPIKey:
		name = c.Header
		if name == "" {
			name = DefaultAPIKeyHeader
		}
		return name, c.Token, true
	default:
		return "", "", false
	}
}

// Apply adds the credential header to headers and returns the map, which is
// allocated when nil.
func (c Credentials) Apply(headers map[string]string) map[string]string {
	name, value, ok := c.HeaderValue()
	if !ok {
		return headers
	}
	if headers == nil {
		headers = make(map[string]string, 1)
	}
	headers[name] = value
	return headers
}

// Redacted returns a printable form of the token.
func (c Credentials) Redacted() string {
	if len(c.Token) <= 8 {
		return strings.Repeat("*", len(c.Token))
	}
	return c.Token[:4] + strings.Repeat("*", len(c.Token)-4)
}
