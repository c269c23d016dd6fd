package errors

import (
	"fmt"
	"net/url"
	"time"
)

// TransportErrorData contains structured data for transport-related errors
type TransportErrorData struct {
	Transport  string        `json:"transport"`
	Operation  string        `json:"operation,omitempty"`
	Endpoint   string        `json:"endpoint,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

const transportName = "streamable_http"

func reason(cause error) string {
	if cause == nil {
		return ""
	}
	return cause.Error()
}

func hostOf(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		return u.Host
	}
	return endpoint
}

// ConnectionFailed creates an error for requests that never got a response,
// such as a refused connection or a DNS failure.
func ConnectionFailed(endpoint string, cause error) MCPError {
	message := fmt.Sprintf("Failed to connect to %s", endpoint)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeConnectionFailed,
		message,
		CategoryTransport,
		SeverityCritical,
	).WithData(&TransportErrorData{
		Transport: transportName,
		Operation: "connect",
		Endpoint:  hostOf(endpoint),
		Reason:    reason(cause),
	})
}

// HTTPTransportError creates an error for a response with a non-success status
// or a body that could not be read.
func HTTPTransportError(operation, endpoint string, statusCode int, cause error) MCPError {
	message := fmt.Sprintf("HTTP transport error during %s", operation)
	if statusCode > 0 {
		message = fmt.Sprintf("HTTP %d error during %s", statusCode, operation)
	}
	if endpoint != "" {
		message = fmt.Sprintf("%s to %s", message, endpoint)
	}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeTransportError,
		message,
		CategoryTransport,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport:  transportName,
		Operation:  operation,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Reason:     reason(cause),
	})
}

// OperationTimeout creates an error for a call that exceeded its deadline.
func OperationTimeout(operation string, timeout time.Duration, cause error) MCPError {
	return WrapError(
		cause,
		CodeOperationTimeout,
		fmt.Sprintf("request %s timed out after %s", operation, timeout),
		CategoryTimeout,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: transportName,
		Operation: operation,
		Timeout:   timeout,
		Reason:    "deadline exceeded",
	})
}

// OperationCancelled creates an error for a call abandoned because its parent
// context was cancelled.
func OperationCancelled(operation string, cause error) MCPError {
	return WrapError(
		cause,
		CodeOperationCancelled,
		fmt.Sprintf("request %s cancelled", operation),
		CategoryCancelled,
		SeverityInfo,
	)
}

// MalformedResponse creates an error for a body that is neither a streaming
// event frame nor a bare JSON-RPC response.
func MalformedResponse(operation, contentType string, cause error) MCPError {
	message := fmt.Sprintf("malformed response to %s", operation)
	if contentType != "" {
		message = fmt.Sprintf("%s (content type %q)", message, contentType)
	}
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeParseError,
		message,
		CategoryProtocol,
		SeverityError,
	).WithData(&TransportErrorData{
		Transport: transportName,
		Operation: operation,
		Reason:    reason(cause),
	})
}

// InvalidConfiguration creates an error for a rejected option value.
func InvalidConfiguration(parameter, problem string) MCPError {
	return NewError(
		CodeInvalidConfiguration,
		fmt.Sprintf("invalid configuration for %s: %s", parameter, problem),
		CategoryValidation,
		SeverityError,
	)
}
