package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestContext is the tracer's view of one inbound request. It is built
// before the handler runs and only EndedAt changes afterwards.
type RequestContext struct {
	TraceID    string
	Method     string
	URL        string
	Path       string
	Query      QueryParams
	Headers    HeaderMap
	ClientHost string
	UserAgent  string
	StartedAt  time.Time
	EndedAt    time.Time

	// BodySize is set only when body logging is enabled and the request
	// carried a body.
	BodySize      *int
	BodyReadError string
}

// newRequestContext snapshots c.Request.
func newRequestContext(c *gin.Context, traceID string, redactor *Redactor, now time.Time) *RequestContext {
	req := c.Request
	return &RequestContext{
		TraceID:    traceID,
		Method:     req.Method,
		URL:        fullURL(c),
		Path:       req.URL.Path,
		Query:      ParseQuery(req.URL.RawQuery),
		Headers:    redactor.Headers(req.Header),
		ClientHost: c.RemoteIP(),
		UserAgent:  req.UserAgent(),
		StartedAt:  now,
	}
}

// Elapsed returns the request duration, or zero if it has not ended.
func (rc *RequestContext) Elapsed() time.Duration {
	if rc.EndedAt.IsZero() {
		return 0
	}
	return rc.EndedAt.Sub(rc.StartedAt)
}

// fullURL rebuilds the absolute URL the client asked for.
func fullURL(c *gin.Context) string {
	req := c.Request
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     req.Host,
		Path:     req.URL.Path,
		RawPath:  req.URL.RawPath,
		RawQuery: req.URL.RawQuery,
	}
	return u.String()
}

// GetRequestID returns the trace id assigned to the request.
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// GetRequestContext returns the request snapshot, or nil when the tracer
// did not run.
func GetRequestContext(c *gin.Context) *RequestContext {
	if v, ok := c.Get(RequestContextKey); ok {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}
	return nil
}
