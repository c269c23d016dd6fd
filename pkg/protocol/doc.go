// Package protocol defines the JSON-RPC envelope and the MCP messages used to
// discover a server's capability surface.
//
// Only the client side of the discovery calls is modelled:
//
//   - initialize and the optional notifications/initialized notification
//   - tools/list, resources/list, prompts/list and roots/list
//   - ping
//
// Free-form members such as tool input schemas, prompt arguments and server
// capabilities are decoded as value.Value so that their member order survives
// until canonicalization.
//
// ValidateResponseEnvelope offers an opt-in structural check of response
// messages against an embedded JSON Schema.
package protocol
