// Package observability provides logging, metrics, and tracing
// functionality for the service.
//
// # Logging
//
// The Logger interface wraps zap. It is built once at startup and passed
// explicitly to every component:
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer func() { _ = logger.Sync() }()
//
// The level is held in a zap.AtomicLevel and can be changed at runtime
// with SetLevel, which the config watcher does on reload.
//
// # Metrics
//
// Metrics owns a private Prometheus registry; components register their
// own collectors on it:
//
//	metrics := observability.NewMetrics("apibase")
//	router.GET("/metrics", gin.WrapH(metrics.Handler()))
//
// # Tracing
//
// Tracer sets up an OpenTelemetry provider with W3C trace-context
// propagation. Spans stay in-process; no exporter is configured.
package observability
