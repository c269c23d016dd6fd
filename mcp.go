// Package mcp compares the capability surface of Model Context Protocol
// servers (2025-03-26)
package mcp

import (
	"github.com/ajitpratap0/mcp-fingerprint/pkg/client"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/compare"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/fingerprint"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/transport"
)

// Version represents the current version of the module
const Version = "1.0.0"

// Report is the outcome of a comparison.
type Report = compare.Report

// Descriptor is the capability snapshot of one server.
type Descriptor = descriptor.Descriptor

// These exports provide direct access to the core components
var (
	// Compare decides equivalence of two retrieved descriptors
	Compare = compare.Compare

	// Run retrieves two servers concurrently and compares them
	Run = compare.Run

	// Fingerprint returns the SHA-256 digest of a descriptor
	Fingerprint = fingerprint.Fingerprint

	// Normalize fills absent descriptor fields with empty values
	Normalize = descriptor.Normalize

	// NewClient creates a discovery client
	NewClient = client.New

	// NewTransport creates a streamable HTTP transport
	NewTransport = transport.New

	// DefaultTransportConfig returns a header-mode transport configuration
	DefaultTransportConfig = transport.DefaultConfig
)

// Session modes
const (
	SessionModeHeader  = transport.SessionModeHeader
	SessionModeEventID = transport.SessionModeEventID
)

// Client options
var (
	WithClientName              = client.WithName
	WithClientVersion           = client.WithVersion
	WithProtocolVersion         = client.WithProtocolVersion
	WithInitializedNotification = client.WithInitializedNotification
	WithMaxPages                = client.WithMaxPages
)

// Comparison options
var (
	WithLogger             = compare.WithLogger
	WithMetrics            = compare.WithMetrics
	WithTracer             = compare.WithTracer
	WithRunID              = compare.WithRunID
	WithTransportConfig    = compare.WithTransportConfig
	WithFingerprintOptions = compare.WithFingerprintOptions
	WithNestedKeyOrder     = fingerprint.WithNestedKeyOrder
)
