// Package errors provides the structured errors raised while talking to an
// MCP server. Each error carries a JSON-RPC style code, a category and a
// severity so callers can branch on them without string matching.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"time"
)

// Category groups errors by what went wrong.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryTransport  Category = "transport"
	CategoryInternal   Category = "internal"
	CategoryTimeout    Category = "timeout"
	CategoryCancelled  Category = "cancelled"
	CategoryProtocol   Category = "protocol"
	CategoryState      Category = "state"
)

// Severity grades an error for logging.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context records which call an error belongs to.
type Context struct {
	RequestID int64     `json:"request_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MCPError is implemented by every error this module raises. The With
// methods return modified copies and leave the receiver untouched.
type MCPError interface {
	error

	Code() int
	Message() string
	// Details is the technical description appended to Message by Error.
	Details() string
	Data() interface{}
	Category() Category
	Severity() Severity
	Context() *Context

	WithContext(ctx *Context) MCPError
	WithDetail(detail string) MCPError
	WithData(data interface{}) MCPError

	Unwrap() error
	ToJSON() map[string]interface{}
}

type baseError struct {
	code     int
	message  string
	details  string
	data     interface{}
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	if e.details == "" {
		return e.message
	}
	return e.message + ": " + e.details
}

func (e *baseError) Code() int { return e.code }
func (e *baseError) Message() string { return e.message }
func (e *baseError) Details() string { return e.details }
func (e *baseError) Data() interface{} { return e.data }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) Context() *Context { return e.context }
func (e *baseError) Unwrap() error { return e.cause }
func (e *baseError) MarshalJSON() ([]byte, error) { return json.Marshal(e.ToJSON()) }

func (e *baseError) clone() *baseError {
	c := *e
	return &c
}

func (e *baseError) WithContext(ctx *Context) MCPError {
	c := e.clone()
	c.context = ctx
	return c
}

// WithDetail appends detail to any existing details, separated by "; ".
func (e *baseError) WithDetail(detail string) MCPError {
	c := e.clone()
	if c.details == "" {
		c.details = detail
	} else {
		c.details += "; " + detail
	}
	return c
}

func (e *baseError) WithData(data interface{}) MCPError {
	c := e.clone()
	c.data = data
	return c
}

// ToJSON flattens the error for reports. Empty optional parts are omitted.
func (e *baseError) ToJSON() map[string]interface{} {
	out := map[string]interface{}{
		"code":     e.code,
		"message":  e.message,
		"category": string(e.category),
		"severity": string(e.severity),
	}
	if e.details != "" {
		out["details"] = e.details
	}
	if e.data != nil {
		out["data"] = e.data
	}
	if e.context != nil {
		out["context"] = e.context
	}
	if e.cause != nil {
		out["cause"] = e.cause.Error()
	}
	return out
}

// NewError returns an error without a cause.
func NewError(code int, message string, category Category, severity Severity) MCPError {
	return WrapError(nil, code, message, category, severity)
}

// WrapError returns an error whose Unwrap yields err.
func WrapError(err error, code int, message string, category Category, severity Severity) MCPError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    err,
		context:  newContext(),
	}
}

func newContext() *Context {
	return &Context{Timestamp: time.Now()}
}

// AsMCPError finds the first MCPError in err's chain.
func AsMCPError(err error) (MCPError, bool) {
	var mcpErr MCPError
	if err == nil || !stderrors.As(err, &mcpErr) {
		return nil, false
	}
	return mcpErr, true
}

func IsMCPError(err error) bool {
	_, ok := AsMCPError(err)
	return ok
}

func IsCategory(err error, category Category) bool {
	mcpErr, ok := AsMCPError(err)
	return ok && mcpErr.Category() == category
}

func IsCode(err error, code int) bool {
	mcpErr, ok := AsMCPError(err)
	return ok && mcpErr.Code() == code
}

// ForCall returns err with its context pointing at one JSON-RPC call. The
// original timestamp is kept.
func ForCall(err MCPError, method, endpoint string, requestID int64) MCPError {
	ctx := newContext()
	if existing := err.Context(); existing != nil {
		copied := *existing
		ctx = &copied
	}
	ctx.Method = method
	ctx.Endpoint = endpoint
	ctx.RequestID = requestID
	return err.WithContext(ctx)
}
