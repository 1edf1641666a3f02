package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apibase/internal/observability"
)

// unmatchedRoute labels requests no route matched.
const unmatchedRoute = "unmatched"

// Metrics returns a middleware recording request counts and latency
// against the matched route pattern. A nil m disables it.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		m.IncrementActiveRequests(method)
		defer m.DecrementActiveRequests(method)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.RecordRequest(method, route, c.Writer.Status(), time.Since(start))
	}
}
