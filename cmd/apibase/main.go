// Package main is the entry point for the apibase service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/apibase/internal/config"
	"github.com/vyrodovalexey/apibase/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "apibase: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, wires the application and serves until
// SIGINT or SIGTERM.
func run(flags cliFlags) error {
	cfg, err := loadAndValidateConfig(flags)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting apibase",
		observability.String("version", version),
		observability.String("git_commit", gitCommit),
		observability.String("config", flags.configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", observability.Error(err))
		return err
	}

	return runApplication(ctx, app, flags.configPath)
}

// parseFlags parses command line flags. Each flag falls back to an
// APIBASE_* environment variable.
func parseFlags(args []string) (cliFlags, error) {
	fs := flag.NewFlagSet("apibase", flag.ContinueOnError)

	var f cliFlags
	fs.StringVar(&f.configPath, "config", getEnvOrDefault("APIBASE_CONFIG_PATH", ""),
		"Path to configuration file (built-in defaults when empty)")
	fs.StringVar(&f.logLevel, "log-level", getEnvOrDefault("APIBASE_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides logging.level")
	fs.StringVar(&f.logFormat, "log-format", getEnvOrDefault("APIBASE_LOG_FORMAT", ""),
		"Log format (json, console); overrides logging.format")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, err
	}
	return f, nil
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "apibase version %s\n", version)
	_, _ = fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	_, _ = fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// loadAndValidateConfig loads the configuration file, or the defaults when
// no path is given, then applies flag and environment overrides.
func loadAndValidateConfig(flags cliFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
	}

	applyOverrides(cfg, flags)

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyOverrides lets flags and APIBASE_DEBUG win over the file.
func applyOverrides(cfg *config.Config, flags cliFlags) {
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
	cfg.App.Debug = getEnvBool("APIBASE_DEBUG", cfg.App.Debug)
	cfg.App.Testing = getEnvBool("APIBASE_TESTING", cfg.App.Testing)
}

// initLogger initializes the logger.
func initLogger(cfg config.LoggingConfig) (observability.Logger, error) {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
