package errors

import (
	"encoding/json"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
)

// FromJSONRPCError converts the error object of a response into an MCPError,
// keeping the server's code and message.
func FromJSONRPCError(jsonrpcErr *protocol.Error) MCPError {
	if jsonrpcErr == nil {
		return nil
	}

	code := int(jsonrpcErr.Code)
	err := &baseError{
		code:     code,
		message:  jsonrpcErr.Message,
		category: GetErrorCodeCategory(code),
		severity: GetErrorCodeSeverity(code),
		cause:    jsonrpcErr,
		context:  newContext(),
	}

	if len(jsonrpcErr.Data) > 0 {
		var data interface{}
		if json.Unmarshal(jsonrpcErr.Data, &data) == nil {
			return err.WithData(data)
		}
		return err.WithData(string(jsonrpcErr.Data))
	}
	return err
}

// ToJSONRPCError converts any error to a JSON-RPC error object
func ToJSONRPCError(err error) *protocol.Error {
	if err == nil {
		return nil
	}

	mcpErr, ok := AsMCPError(err)
	if !ok {
		return &protocol.Error{
			Code:    protocol.InternalError,
			Message: err.Error(),
		}
	}

	out := &protocol.Error{
		Code:    protocol.ErrorCode(mcpErr.Code()),
		Message: mcpErr.Message(),
	}
	if data := mcpErr.Data(); data != nil {
		if raw, marshalErr := json.Marshal(data); marshalErr == nil {
			out.Data = raw
		}
	}
	return out
}

// IsRemote reports whether err carries an error object returned by the
// server rather than a failure raised on the client side.
func IsRemote(err error) bool {
	mcpErr, ok := AsMCPError(err)
	if !ok {
		return false
	}
	_, remote := mcpErr.Unwrap().(*protocol.Error)
	return remote
}
