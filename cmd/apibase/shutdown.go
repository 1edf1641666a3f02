package main

import (
	"context"
	"time"

	"github.com/vyrodovalexey/apibase/internal/config"
	"github.com/vyrodovalexey/apibase/internal/observability"
)

// runApplication serves until ctx is cancelled or the server fails, then
// shuts everything down.
func runApplication(ctx context.Context, app *application, configPath string) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start(ctx)
	}()

	watcher := startConfigWatcher(ctx, app, configPath)

	var err error
	serverDone := false
	select {
	case <-ctx.Done():
		app.logger.Info("received shutdown signal")
	case err = <-serverErr:
		serverDone = true
		if err != nil {
			app.logger.Error("server failed", observability.Error(err))
		}
	}

	shutdown(app, watcher)

	// Stop also covers a Start that had not begun listening yet, so the
	// serving goroutine always returns here.
	if !serverDone {
		if startErr := <-serverErr; startErr != nil {
			app.logger.Error("server failed", observability.Error(startErr))
			err = startErr
		}
	}
	return err
}

// startConfigWatcher watches the config file and applies live changes.
// It returns nil when running on built-in defaults.
func startConfigWatcher(ctx context.Context, app *application, configPath string) *config.Watcher {
	if configPath == "" {
		return nil
	}

	reload := config.NewReloadHandler(app.config, app.logger, app.logger)
	watcher, err := config.NewWatcher(configPath, reload.Apply,
		config.WithLogger(app.logger),
		config.WithInitialConfig(app.config),
		config.WithErrorCallback(func(err error) {
			app.logger.Warn("configuration reload rejected", observability.Error(err))
		}),
	)
	if err != nil {
		app.logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(ctx); err != nil {
		app.logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}

	return watcher
}

// shutdown stops the server first so in-flight health checks finish
// before their dependencies close.
func shutdown(app *application, watcher *config.Watcher) {
	timeout := app.config.Server.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	start := time.Now()
	if err := app.server.Stop(shutdownCtx); err != nil {
		app.logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	app.close(shutdownCtx)

	app.logger.Info("apibase stopped", observability.Duration("shutdown_duration", time.Since(start)))
}
