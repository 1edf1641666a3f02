// Package health runs dependency probes and serves the health endpoints.
//
// A Probe is a named check with its own timeout. The Aggregator runs the
// probes a Variant plans for and classifies the results:
//
//   - UNHEALTHY if any mandatory probe is unhealthy
//   - DEGRADED if only optional probes are unhealthy or missing
//   - HEALTHY otherwise
//
// The Reporter turns reports into the /health, /health/detailed,
// /health/liveness and /health/readiness responses. Basic and liveness
// never run a probe; readiness runs only the database probe.
//
//	agg := health.NewAggregator(health.WithLogger(logger))
//	_ = agg.Register(
//	    health.DatabaseProbe(pool),
//	    health.SystemProbe(health.NewPSUtilSampler("/", time.Second), health.Thresholds{}),
//	)
//	health.NewReporter(agg, appInfo).RegisterRoutes(router.Group("/api/v1"))
package health
