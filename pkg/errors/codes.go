package errors

// JSON-RPC 2.0 standard error codes. Servers answer with these; the client
// also uses CodeParseError for bodies it cannot decode.
const (
	CodeParseError     int = -32700
	CodeInvalidRequest int = -32600
	CodeMethodNotFound int = -32601
	CodeInvalidParams  int = -32602
	CodeInternalError  int = -32603
)

// Client-side error codes
const (
	// Session state errors (-32000 to -32099)
	CodeServerNotReady int = -32001 // Listing attempted before a successful initialize

	// Operation errors (-32300 to -32399)
	CodeOperationCancelled int = -32300 // Parent context cancelled
	CodeOperationTimeout   int = -32301 // Per-call deadline exceeded

	// Transport errors (-32500 to -32599)
	CodeTransportError   int = -32500 // Non-success HTTP status or unreadable body
	CodeConnectionFailed int = -32501 // Request never reached the server

	// Validation errors (-32750 to -32799)
	CodeInvalidConfiguration int = -32750 // Client or transport misconfigured

	// Protocol errors (-32900 to -32999)
	CodeProtocolError   int = -32900 // Response violates the JSON-RPC envelope
	CodeInvalidSequence int = -32902 // State machine refused a transition
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeParseError:     {CodeParseError, "ParseError", "Invalid JSON was received", CategoryProtocol, SeverityError},
	CodeInvalidRequest: {CodeInvalidRequest, "InvalidRequest", "Invalid Request object", CategoryProtocol, SeverityError},
	CodeMethodNotFound: {CodeMethodNotFound, "MethodNotFound", "Method does not exist", CategoryProtocol, SeverityWarning},
	CodeInvalidParams:  {CodeInvalidParams, "InvalidParams", "Invalid method parameters", CategoryValidation, SeverityError},
	CodeInternalError:  {CodeInternalError, "InternalError", "Internal JSON-RPC error", CategoryInternal, SeverityError},

	CodeServerNotReady: {CodeServerNotReady, "ServerNotReady", "Session not initialized", CategoryState, SeverityError},

	CodeOperationCancelled: {CodeOperationCancelled, "OperationCancelled", "Operation cancelled", CategoryCancelled, SeverityInfo},
	CodeOperationTimeout:   {CodeOperationTimeout, "OperationTimeout", "Operation timed out", CategoryTimeout, SeverityError},

	CodeTransportError:   {CodeTransportError, "TransportError", "Transport error", CategoryTransport, SeverityError},
	CodeConnectionFailed: {CodeConnectionFailed, "ConnectionFailed", "Connection failed", CategoryTransport, SeverityCritical},

	CodeInvalidConfiguration: {CodeInvalidConfiguration, "InvalidConfiguration", "Invalid configuration", CategoryValidation, SeverityError},

	CodeProtocolError:   {CodeProtocolError, "ProtocolError", "Protocol error", CategoryProtocol, SeverityError},
	CodeInvalidSequence: {CodeInvalidSequence, "InvalidSequence", "Invalid message sequence", CategoryState, SeverityError},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// GetErrorCodeCategory returns the category of an error code. Codes a
// server invents are treated as protocol errors.
func GetErrorCodeCategory(code int) Category {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Category
	}
	return CategoryProtocol
}

// GetErrorCodeSeverity returns the severity of an error code
func GetErrorCodeSeverity(code int) Severity {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Severity
	}
	return SeverityError
}
