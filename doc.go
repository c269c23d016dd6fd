// Package mcp tells whether two Model Context Protocol servers expose the
// same capability surface.
//
// Each server is contacted over streamable HTTP: the client initializes a
// session, lists tools, resources, prompts and roots, and pings. The
// resulting descriptor is normalized, canonicalized and hashed with
// SHA-256. Two servers are equivalent exactly when their digests match; the
// list of differences only explains a mismatch.
//
// # Overview
//
// The module consists of several packages:
//
//   - pkg/value: ordered JSON values used for schemas and capabilities
//   - pkg/protocol: JSON-RPC and MCP wire types
//   - pkg/transport: the streamable HTTP transport and its middleware
//   - pkg/client: the discovery client and its session state machine
//   - pkg/descriptor: the capability snapshot and its normalizer
//   - pkg/fingerprint: canonical form and SHA-256 digest
//   - pkg/compare: verdict, difference walk and concurrent runs
//   - pkg/config: YAML, .env and environment configuration
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//   - cmd/mcpcompare: the command line tool
//
// # Comparing Two Servers
//
//	import (
//	    "context"
//	    "fmt"
//
//	    mcp "github.com/ajitpratap0/mcp-fingerprint"
//	)
//
//	func main() {
//	    report, _, err := mcp.Run(context.Background(),
//	        "http://localhost:8080/mcp",
//	        "http://localhost:9090/mcp",
//	    )
//	    if err != nil {
//	        // an endpoint is misconfigured
//	    }
//	    fmt.Println(report.Verdict(), report.Differences)
//	}
//
// An unreachable server is not an error. It produces a report that is not
// equivalent and carries a single reachability difference.
//
// # Legacy Sessions
//
// Servers that predate the Mcp-Session-Id header hand out the session in the
// id of the streaming event carrying the initialize response, as
// "<session>_<sequence>". Select that mode per side:
//
//	report, _, err := mcp.Run(ctx, a, b,
//	    mcp.WithTransportConfig(func(side compare.Side, cfg *transport.Config) {
//	        if side == compare.SideB {
//	            cfg.SessionMode = mcp.SessionModeEventID
//	        }
//	    }),
//	)
//
// # Fingerprints
//
// Lists are sorted by name with locale-aware collation, ties broken by the
// canonical encoding of the entry, and nested object keys are sorted unless
// mcp.WithNestedKeyOrder(fingerprint.PreserveKeyOrder) is given. Roots,
// the protocol version and failed discovery calls never affect a digest.
package mcp
