package middleware

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vyrodovalexey/apibase/internal/observability"
)

// TracerConfig holds configuration for the request tracer.
type TracerConfig struct {
	Logger observability.Logger

	// RedactHeaders extends DefaultSensitiveHeaders.
	RedactHeaders []string

	// LogBodySize adds body_size to the start record of POST, PUT and
	// PATCH requests. The body itself is never logged.
	LogBodySize bool

	// NewID generates trace ids. Defaults to uuid.NewString.
	NewID func() string

	// Now defaults to time.Now.
	Now func() time.Time
}

// RequestTracer returns a middleware that assigns every request a trace id,
// sets the X-Request-ID response header and logs the request lifecycle.
// An incoming X-Request-ID is ignored.
func RequestTracer(logger observability.Logger) gin.HandlerFunc {
	return RequestTracerWithConfig(TracerConfig{Logger: logger})
}

// RequestTracerWithConfig returns a request tracer with custom configuration.
func RequestTracerWithConfig(config TracerConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	t := &requestTracer{
		logger:      config.Logger,
		redactor:    NewRedactor(config.RedactHeaders...),
		logBodySize: config.LogBodySize,
		newID:       config.NewID,
		now:         config.Now,
	}
	return t.handle
}

type requestTracer struct {
	logger      observability.Logger
	redactor    *Redactor
	logBodySize bool
	newID       func() string
	now         func() time.Time
}

func (t *requestTracer) handle(c *gin.Context) {
	traceID := t.newID()

	// Set before the handler runs so the header survives panics and
	// streamed bodies.
	c.Set(RequestIDKey, traceID)
	c.Header(RequestIDHeader, traceID)
	c.Request = c.Request.WithContext(observability.ContextWithRequestID(c.Request.Context(), traceID))

	rc := newRequestContext(c, traceID, t.redactor, t.now())
	c.Set(RequestContextKey, rc)

	if t.logBodySize && hasBody(rc.Method) {
		measureBody(c, rc)
	}

	t.safeLog(func() { t.logStart(c, rc) })

	defer func() {
		if r := recover(); r != nil {
			rc.EndedAt = t.now()
			t.safeLog(func() { t.logFailure(c, rc, fmt.Sprint(r)) })
			panic(r)
		}
	}()

	c.Next()

	rc.EndedAt = t.now()

	// Errors attached by a handler that returned normally annotate the
	// completion record; only a panic produces MsgRequestFailed.
	t.safeLog(func() { t.logCompletion(c, rc) })
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// measureBody reads the request body to record its size and puts an
// identical reader back for the handler.
func measureBody(c *gin.Context, rc *RequestContext) {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		rc.BodyReadError = err.Error()
		return
	}
	if len(body) > 0 {
		size := len(body)
		rc.BodySize = &size
	}
}

func (t *requestTracer) logStart(c *gin.Context, rc *RequestContext) {
	fields := []observability.Field{
		observability.String("method", rc.Method),
		observability.String("url", rc.URL),
		observability.String("path", rc.Path),
		observability.Array("query_params", rc.Query),
		observability.Object("headers", rc.Headers),
		observability.String("client_host", rc.ClientHost),
		observability.String("user_agent", rc.UserAgent),
	}
	if rc.BodySize != nil {
		fields = append(fields, observability.Int("body_size", *rc.BodySize))
	}
	if rc.BodyReadError != "" {
		fields = append(fields, observability.String("body_read_error", rc.BodyReadError))
	}
	t.logger.WithContext(c.Request.Context()).Info(MsgRequestStarted, fields...)
}

func (t *requestTracer) logFailure(c *gin.Context, rc *RequestContext, errText string) {
	t.logger.WithContext(c.Request.Context()).Error(MsgRequestFailed,
		observability.String("method", rc.Method),
		observability.String("url", rc.URL),
		observability.String("error", errText),
		observability.Float64("response_time_ms", elapsedMillis(rc.Elapsed())),
	)
}

func (t *requestTracer) logCompletion(c *gin.Context, rc *RequestContext) {
	status := c.Writer.Status()
	fields := []observability.Field{
		observability.String("method", rc.Method),
		observability.String("url", rc.URL),
		observability.Int("status_code", status),
		observability.Float64("response_time_ms", elapsedMillis(rc.Elapsed())),
		responseSizeField(c),
	}
	if len(c.Errors) > 0 {
		fields = append(fields, observability.String("error", c.Errors.String()))
	}

	logger := t.logger.WithContext(c.Request.Context())
	switch {
	case status >= 500:
		logger.Error(MsgRequestCompleted, fields...)
	case status >= 400:
		logger.Warn(MsgRequestCompleted, fields...)
	default:
		logger.Info(MsgRequestCompleted, fields...)
	}
}

// safeLog runs fn and downgrades any panic raised while logging to a
// warning.
func (t *requestTracer) safeLog(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			func() {
				defer func() { _ = recover() }()
				t.logger.Warn(MsgTracingFailed,
					observability.Error(fmt.Errorf("%w: %v", ErrTracingFailure, r)),
				)
			}()
		}
	}()
	fn()
}

// elapsedMillis converts d to milliseconds rounded to two decimals.
func elapsedMillis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

// responseSizeField prefers the Content-Length header, then the number of
// bytes written. It is null when neither is known.
func responseSizeField(c *gin.Context) observability.Field {
	if cl := c.Writer.Header().Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			return observability.Int64("response_size", n)
		}
	}
	if c.Writer.Written() {
		return observability.Int("response_size", c.Writer.Size())
	}
	return observability.Any("response_size", nil)
}
