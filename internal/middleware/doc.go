// Package middleware provides the gin middleware every request passes
// through.
//
// The chain, outermost first:
//
//	router.Use(
//	    middleware.Recovery(logger),
//	    middleware.Tracing(tracer),
//	    middleware.RequestTracerWithConfig(middleware.TracerConfig{Logger: logger}),
//	)
//
// RequestTracer assigns each request a fresh UUID, echoes it in the
// X-Request-ID response header and logs "request started",
// "request completed" and, on failure, "request failed with exception".
// Header values for authorization, x-api-key, cookie and x-auth-token are
// always logged as [REDACTED].
package middleware
