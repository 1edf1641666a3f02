package server

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apibase/internal/config"
	"github.com/vyrodovalexey/apibase/internal/health"
	"github.com/vyrodovalexey/apibase/internal/middleware"
	"github.com/vyrodovalexey/apibase/internal/observability"
)

// ginModeOnce ensures gin.SetMode is only called once to avoid race conditions
var ginModeOnce sync.Once

// Response bodies for requests no handler serves.
const (
	detailNotFound         = "Not Found"
	detailMethodNotAllowed = "Method Not Allowed"
)

// RouterOptions are the collaborators the router mounts.
type RouterOptions struct {
	Logger        observability.Logger
	Tracer        *observability.Tracer
	Metrics       *observability.Metrics
	MetricsPath   string
	APIPrefix     string
	RedactHeaders []string
	LogBodySize   bool
	Reporter      *health.Reporter
	Debug         bool
}

// NewRouter builds the gin engine: recovery outermost, then the server
// span, the request tracer and request metrics. Health routes live under
// the API prefix; /metrics, when enabled, sits at the root.
func NewRouter(opts RouterOptions) *gin.Engine {
	ginModeOnce.Do(func() {
		if opts.Debug {
			gin.SetMode(gin.DebugMode)
			return
		}
		gin.SetMode(gin.ReleaseMode)
	})

	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.Recovery(logger),
		middleware.Tracing(opts.Tracer),
		middleware.RequestTracerWithConfig(middleware.TracerConfig{
			Logger:        logger,
			RedactHeaders: opts.RedactHeaders,
			LogBodySize:   opts.LogBodySize,
		}),
		middleware.Metrics(opts.Metrics),
	)

	prefix := opts.APIPrefix
	if prefix == "" {
		prefix = config.DefaultAPIPrefix
	}
	api := engine.Group(prefix)
	if opts.Reporter != nil {
		opts.Reporter.RegisterRoutes(api)
	}

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		engine.GET(path, gin.WrapH(opts.Metrics.Handler()))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": detailNotFound})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": detailMethodNotAllowed})
	})

	return engine
}
