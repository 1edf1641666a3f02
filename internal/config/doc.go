// Package config provides configuration types and loading for the
// service.
//
// # Features
//
//   - YAML configuration file loading on top of DefaultConfig
//   - Environment variable substitution with ${VAR:-default} syntax
//   - Struct-tag validation with field paths reported by YAML key
//   - File watching for hot-reload of the log level
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("apibase.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # File Watching
//
//	reload := config.NewReloadHandler(cfg, logger, logger)
//	watcher, err := config.NewWatcher(path, reload.Apply,
//	    config.WithLogger(logger),
//	    config.WithInitialConfig(cfg),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = watcher.Start(ctx)
package config
