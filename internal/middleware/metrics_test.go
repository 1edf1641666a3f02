package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/apibase/internal/observability"
)

func TestMetrics_RecordsMatchedRoute(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics("mw")

	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/api/v1/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/api/v1/items/1", "/api/v1/items/2", "/nowhere"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP mw_requests_total Total number of HTTP requests
# TYPE mw_requests_total counter
mw_requests_total{method="GET",route="/api/v1/items/:id",status="204"} 2
mw_requests_total{method="GET",route="unmatched",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "mw_requests_total"))
}

func TestMetrics_Nil(t *testing.T) {
	t.Parallel()

	r := gin.New()
	r.Use(Metrics(nil))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
