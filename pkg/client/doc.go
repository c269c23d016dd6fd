// Package client drives the discovery session against one MCP server.
//
// A Client walks a small state machine:
//
//	created -> initializing -> initialized -> listing -> done
//	               \-> errored -> done
//
// Listing calls fail with a not-ready error until initialize has succeeded,
// and nothing is sent to the server in that case. Ping is allowed in any
// state.
//
// # Retrieving a descriptor
//
//	t, err := transport.New(transport.DefaultConfig("http://localhost:8080/mcp"))
//	if err != nil {
//	    return err
//	}
//	c := client.New(t, client.WithName("mcp-fingerprint"), client.WithVersion("1.0.0"))
//	d := c.RetrieveDescriptor(ctx)
//	if !d.Reachable() {
//	    fmt.Println("unreachable:", d.Error)
//	}
//
// RetrieveDescriptor never fails as a whole. Only a failed initialize turns
// the descriptor into an error descriptor; every later call that fails is
// recorded in Failures and leaves its field empty.
//
// # Pagination
//
// List calls follow nextCursor until the server stops returning one, up to
// DefaultMaxPages pages. A repeated cursor or a failing page fails the whole
// listing.
package client
