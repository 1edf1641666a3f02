package middleware

import "errors"

const (
	// RequestIDHeader is the response header carrying the trace id.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin context key for the trace id.
	RequestIDKey = "requestID"

	// RequestContextKey is the gin context key for the *RequestContext.
	RequestContextKey = "requestContext"

	// SpanKey is the gin context key for the server span.
	SpanKey = "otel-span"

	// RedactedValue replaces the value of every sensitive header.
	RedactedValue = "[REDACTED]"
)

// Log messages emitted by the request tracer.
const (
	MsgRequestStarted   = "request started"
	MsgRequestFailed    = "request failed with exception"
	MsgRequestCompleted = "request completed"
	MsgTracingFailed    = "request logging failed"
)

// DefaultSensitiveHeaders are redacted regardless of configuration.
var DefaultSensitiveHeaders = []string{
	"authorization",
	"x-api-key",
	"cookie",
	"x-auth-token",
}

// ErrTracingFailure marks a failure inside the tracer's own logging. It is
// reported at warn level and never changes the response.
var ErrTracingFailure = errors.New("request tracing failure")
