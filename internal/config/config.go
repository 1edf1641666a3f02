package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config is the root configuration of the service.
type Config struct {
	App      AppConfig      `yaml:"app" json:"app" validate:"required"`
	Server   ServerConfig   `yaml:"server" json:"server" validate:"required"`
	Database DatabaseConfig `yaml:"database" json:"database" validate:"required"`
	Redis    RedisConfig    `yaml:"redis,omitempty" json:"redis,omitempty"`
	Health   HealthConfig   `yaml:"health" json:"health"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Tracing  TracingConfig  `yaml:"tracing,omitempty" json:"tracing,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// AppConfig describes the application surfaced in health payloads.
type AppConfig struct {
	Name        string `yaml:"name" json:"name" validate:"required"`
	Version     string `yaml:"version" json:"version" validate:"required"`
	Debug       bool   `yaml:"debug" json:"debug"`
	Testing     bool   `yaml:"testing" json:"testing"`
	Environment string `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address" json:"address"`
	Port            int      `yaml:"port" json:"port" validate:"min=1,max=65535"`
	APIPrefix       string   `yaml:"api_prefix" json:"api_prefix" validate:"omitempty,startswith=/"`
	ReadTimeout     Duration `yaml:"read_timeout" json:"read_timeout" validate:"gte=0"`
	WriteTimeout    Duration `yaml:"write_timeout" json:"write_timeout" validate:"gte=0"`
	IdleTimeout     Duration `yaml:"idle_timeout" json:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gte=0"`
}

// ListenAddr returns the host:port the server binds to.
func (s ServerConfig) ListenAddr() string {
	return net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}

// DatabaseConfig configures the PostgreSQL connection pool. URL, when set,
// takes precedence over the discrete connection fields.
type DatabaseConfig struct {
	URL             string   `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
	Host            string   `yaml:"host" json:"host" validate:"required_without=URL"`
	Port            int      `yaml:"port" json:"port" validate:"omitempty,min=1,max=65535"`
	User            string   `yaml:"user" json:"user"`
	Password        string   `yaml:"password" json:"-"`
	Name            string   `yaml:"name" json:"name"`
	SSLMode         string   `yaml:"ssl_mode" json:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns        int32    `yaml:"max_conns" json:"max_conns" validate:"gte=0"`
	MinConns        int32    `yaml:"min_conns" json:"min_conns" validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime Duration `yaml:"max_conn_lifetime" json:"max_conn_lifetime" validate:"gte=0"`
	MaxConnIdleTime Duration `yaml:"max_conn_idle_time" json:"max_conn_idle_time" validate:"gte=0"`
	ConnectTimeout  Duration `yaml:"connect_timeout" json:"connect_timeout" validate:"gte=0"`
}

// DSN returns the connection string handed to pgx.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}

	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Duration()/time.Second)))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// String hides the password.
func (d DatabaseConfig) String() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s", d.User, d.Host, d.Port, d.Name)
}

// RedisConfig configures the optional cache dependency. An empty URL
// disables the cache probe.
type RedisConfig struct {
	URL string `yaml:"url,omitempty" json:"url,omitempty" validate:"omitempty,url"`
}

// Enabled reports whether a Redis URL is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// HealthConfig configures probe execution.
type HealthConfig struct {
	ProbeTimeout      Duration `yaml:"probe_timeout" json:"probe_timeout" validate:"gte=0"`
	Parallel          *bool    `yaml:"parallel,omitempty" json:"parallel,omitempty"`
	CPUSampleInterval Duration `yaml:"cpu_sample_interval" json:"cpu_sample_interval" validate:"gte=0"`
	DiskPath          string   `yaml:"disk_path" json:"disk_path"`
	MaxCPUPercent     float64  `yaml:"max_cpu_percent" json:"max_cpu_percent" validate:"gte=0,lte=100"`
	MaxMemoryPercent  float64  `yaml:"max_memory_percent" json:"max_memory_percent" validate:"gte=0,lte=100"`
	MaxDiskPercent    float64  `yaml:"max_disk_percent" json:"max_disk_percent" validate:"gte=0,lte=100"`
}

// RunParallel reports whether probes run concurrently. Defaults to true.
func (h HealthConfig) RunParallel() bool {
	return h.Parallel == nil || *h.Parallel
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level         string   `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format        string   `yaml:"format" json:"format" validate:"omitempty,oneof=json console"`
	Output        string   `yaml:"output" json:"output"`
	RedactHeaders []string `yaml:"redact_headers,omitempty" json:"redact_headers,omitempty"`
	LogBodySize   bool     `yaml:"log_body_size" json:"log_body_size"`
}

// TracingConfig configures in-process OpenTelemetry spans.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate" validate:"gte=0,lte=1"`
	ServiceName  string  `yaml:"service_name" json:"service_name" validate:"required_if=Enabled true"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path" validate:"omitempty,startswith=/"`
}

// Default values.
const (
	DefaultAppName           = "FastAPI Backend"
	DefaultAppVersion        = "1.0.0"
	DefaultPort              = 8000
	DefaultAPIPrefix         = "/api/v1"
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultDatabasePort      = 5432
	DefaultMaxConns          = 10
	DefaultMaxConnLifetime   = 5 * time.Minute
	DefaultMaxConnIdleTime   = 30 * time.Second
	DefaultConnectTimeout    = 5 * time.Second
	DefaultProbeTimeout      = 5 * time.Second
	DefaultCPUSampleInterval = time.Second
	DefaultMetricsPath       = "/metrics"
)

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:    DefaultAppName,
			Version: DefaultAppVersion,
		},
		Server: ServerConfig{
			Address:         "0.0.0.0",
			Port:            DefaultPort,
			APIPrefix:       DefaultAPIPrefix,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			IdleTimeout:     Duration(DefaultIdleTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            DefaultDatabasePort,
			User:            "postgres",
			Name:            "fastapi_db",
			SSLMode:         "disable",
			MaxConns:        DefaultMaxConns,
			MaxConnLifetime: Duration(DefaultMaxConnLifetime),
			MaxConnIdleTime: Duration(DefaultMaxConnIdleTime),
			ConnectTimeout:  Duration(DefaultConnectTimeout),
		},
		Health: HealthConfig{
			ProbeTimeout:      Duration(DefaultProbeTimeout),
			CPUSampleInterval: Duration(DefaultCPUSampleInterval),
			DiskPath:          "/",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			SamplingRate: 1.0,
			ServiceName:  "apibase",
		},
		Metrics: MetricsConfig{
			Path: DefaultMetricsPath,
		},
	}
}
