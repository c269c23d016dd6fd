package errors

import (
	"fmt"
)

// ServerNotReady creates the error returned when a listing call is attempted
// before the session has been initialized. Nothing is sent to the server.
func ServerNotReady(method, state string) MCPError {
	return NewError(
		CodeServerNotReady,
		fmt.Sprintf("Server not ready: %s requires an initialized session (state %s)", method, state),
		CategoryState,
		SeverityError,
	).WithData(map[string]string{"method": method, "state": state})
}

// InvalidSequence creates an error for a call issued out of order
func InvalidSequence(expected, actual string) MCPError {
	return NewError(
		CodeInvalidSequence,
		fmt.Sprintf("Invalid message sequence: expected %s, got %s", expected, actual),
		CategoryState,
		SeverityError,
	)
}

// ProtocolError creates a generic protocol error
func ProtocolError(reason string) MCPError {
	return NewError(
		CodeProtocolError,
		fmt.Sprintf("Protocol error: %s", reason),
		CategoryProtocol,
		SeverityError,
	)
}
