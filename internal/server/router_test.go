package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/apibase/internal/health"
	"github.com/vyrodovalexey/apibase/internal/middleware"
	"github.com/vyrodovalexey/apibase/internal/observability"
)

func newReporter(t *testing.T, dbErr error) *health.Reporter {
	t.Helper()

	agg := health.NewAggregator()
	require.NoError(t, agg.Register(
		health.CustomProbe(health.ProbeDatabase, func(context.Context) error { return dbErr }),
	))
	return health.NewReporter(agg, health.AppInfo{Name: "FastAPI Backend", Version: "1.0.0"})
}

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestNewRouter_HealthRoutes(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterOptions{Reporter: newReporter(t, nil)})

	tests := []struct {
		path       string
		wantStatus string
	}{
		{path: "/api/v1/health", wantStatus: "healthy"},
		{path: "/api/v1/health/liveness", wantStatus: "alive"},
		{path: "/api/v1/health/readiness", wantStatus: "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			rec := serve(router, http.MethodGet, tt.path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantStatus, decode(t, rec)["status"])
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestNewRouter_CustomPrefix(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterOptions{APIPrefix: "/internal", Reporter: newReporter(t, nil)})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/internal/health").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/v1/health").Code)
}

func TestNewRouter_ReadinessFailure(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterOptions{Reporter: newReporter(t, errors.New("connection refused"))})

	rec := serve(router, http.MethodGet, "/api/v1/health/readiness")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, map[string]any{"database": "unhealthy"}, decode(t, rec)["checks"])
}

func TestNewRouter_NotFound(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterOptions{Reporter: newReporter(t, nil)})

	rec := serve(router, http.MethodGet, "/api/v1/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"detail": "Not Found"}, decode(t, rec))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterOptions{Reporter: newReporter(t, nil)})

	rec := serve(router, http.MethodPost, "/api/v1/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, map[string]any{"detail": "Method Not Allowed"}, decode(t, rec))
}

func TestNewRouter_PanicBecomesJSON500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	router := NewRouter(RouterOptions{Logger: observability.FromZap(zap.New(core))})
	router.GET("/api/v1/boom", func(*gin.Context) { panic("boom") })

	rec := serve(router, http.MethodGet, "/api/v1/boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"detail": "Internal server error"}, decode(t, rec))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, 1, logs.FilterMessage(middleware.MsgRequestFailed).Len())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestNewRouter_Metrics(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("apibase")
	router := NewRouter(RouterOptions{Metrics: metrics, Reporter: newReporter(t, nil)})

	serve(router, http.MethodGet, "/api/v1/health")

	rec := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `apibase_requests_total{method="GET",route="/api/v1/health",status="200"} 1`)
}

func TestNewRouter_MetricsDisabled(t *testing.T) {
	t.Parallel()

	router := NewRouter(RouterOptions{Reporter: newReporter(t, nil)})
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/metrics").Code)
}
