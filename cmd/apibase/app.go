package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/vyrodovalexey/apibase/internal/config"
	"github.com/vyrodovalexey/apibase/internal/database"
	"github.com/vyrodovalexey/apibase/internal/health"
	"github.com/vyrodovalexey/apibase/internal/observability"
	"github.com/vyrodovalexey/apibase/internal/server"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "apibase"

// application holds all application components.
type application struct {
	config     *config.Config
	logger     observability.Logger
	tracer     *observability.Tracer
	metrics    *observability.Metrics
	pool       *database.Pool
	redis      *redis.Client
	aggregator *health.Aggregator
	handler    http.Handler
	server     *server.Server
}

// newApplication initializes all application components. Nothing dials
// out here: the pool and the Redis client connect on first use.
func newApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (*application, error) {
	app := &application{config: cfg, logger: logger}

	tracer, err := initTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}
	app.tracer = tracer

	pool, err := database.New(ctx, cfg.Database, database.WithLogger(logger.With(observability.String("component", "database"))))
	if err != nil {
		return nil, err
	}
	app.pool = pool

	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			app.close(ctx)
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		app.redis = redis.NewClient(opts)
	}

	var healthMetrics *health.Metrics
	if cfg.Metrics.Enabled {
		app.metrics = observability.NewMetrics(metricsNamespace)
		app.metrics.SetBuildInfo(cfg.App.Name, cfg.App.Version)
		app.metrics.MustRegisterCollector(database.NewCollector(pool, metricsNamespace))
		healthMetrics = health.NewMetrics(app.metrics.Registry(), metricsNamespace)
	}

	aggregator, err := initAggregator(cfg, app, healthMetrics)
	if err != nil {
		app.close(ctx)
		return nil, err
	}
	app.aggregator = aggregator

	reporter := health.NewReporter(aggregator, health.AppInfo{
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
		Debug:   cfg.App.Debug,
		Testing: cfg.App.Testing,
	}, health.WithReporterLogger(logger))

	app.handler = server.NewRouter(server.RouterOptions{
		Logger:        logger,
		Tracer:        tracer,
		Metrics:       app.metrics,
		MetricsPath:   cfg.Metrics.Path,
		APIPrefix:     cfg.Server.APIPrefix,
		RedactHeaders: cfg.Logging.RedactHeaders,
		LogBodySize:   cfg.Logging.LogBodySize,
		Reporter:      reporter,
		Debug:         cfg.App.Debug,
	})
	app.server = server.New(server.ConfigFrom(cfg.Server), app.handler, logger)

	logger.Info("application initialized",
		observability.String("app_name", cfg.App.Name),
		observability.String("api_prefix", cfg.Server.APIPrefix),
		observability.Bool("redis", cfg.Redis.Enabled()),
		observability.Bool("metrics", cfg.Metrics.Enabled),
		observability.Bool("tracing", cfg.Tracing.Enabled),
	)

	return app, nil
}

// initTracer initializes the tracer.
func initTracer(cfg config.TracingConfig) (*observability.Tracer, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = metricsNamespace
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:  serviceName,
		Enabled:      cfg.Enabled,
		SamplingRate: cfg.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	return tracer, nil
}

// initAggregator registers the database, system and, when configured,
// cache probes.
func initAggregator(cfg *config.Config, app *application, metrics *health.Metrics) (*health.Aggregator, error) {
	hc := cfg.Health
	timeout := health.WithTimeout(hc.ProbeTimeout.Duration())

	aggregator := health.NewAggregator(
		health.WithParallel(hc.RunParallel()),
		health.WithLogger(app.logger.With(observability.String("component", "health"))),
		health.WithTracer(app.tracer.Tracer()),
		health.WithMetrics(metrics),
	)

	probes := []*health.Probe{
		health.DatabaseProbe(app.pool, timeout),
		health.SystemProbe(
			health.NewPSUtilSampler(hc.DiskPath, hc.CPUSampleInterval.Duration()),
			health.Thresholds{
				MaxCPUPercent:    hc.MaxCPUPercent,
				MaxMemoryPercent: hc.MaxMemoryPercent,
				MaxDiskPercent:   hc.MaxDiskPercent,
			},
			timeout,
		),
	}
	if app.redis != nil {
		probes = append(probes, health.RedisProbe(app.redis, timeout))
	}

	if err := aggregator.Register(probes...); err != nil {
		return nil, fmt.Errorf("failed to register health probes: %w", err)
	}
	return aggregator, nil
}

// close releases every dependency. It is safe on a partially built app.
func (a *application) close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", observability.Error(err))
		}
	}

	a.pool.Close()

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shutdown tracer", observability.Error(err))
		}
	}
}
