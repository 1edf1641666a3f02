// Package server provides the HTTP server and route wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vyrodovalexey/apibase/internal/config"
	"github.com/vyrodovalexey/apibase/internal/observability"
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("server already running")

// Server is the HTTP server for the service.
type Server struct {
	handler    http.Handler
	httpServer *http.Server
	listener   net.Listener
	logger     observability.Logger
	config     *Config
	mu         sync.RWMutex
	running    bool
	stopped    bool
}

// Config holds configuration for the HTTP server.
type Config struct {
	Address           string
	Port              int
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Address:           "0.0.0.0",
		Port:              config.DefaultPort,
		ReadTimeout:       config.DefaultReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      config.DefaultWriteTimeout,
		IdleTimeout:       config.DefaultIdleTimeout,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// ConfigFrom builds a Config from the server section of the service
// configuration.
func ConfigFrom(c config.ServerConfig) *Config {
	cfg := DefaultConfig()
	cfg.Address = c.Address
	cfg.Port = c.Port
	if d := c.ReadTimeout.Duration(); d > 0 {
		cfg.ReadTimeout = d
	}
	if d := c.WriteTimeout.Duration(); d > 0 {
		cfg.WriteTimeout = d
	}
	if d := c.IdleTimeout.Duration(); d > 0 {
		cfg.IdleTimeout = d
	}
	return cfg
}

// Addr returns the configured listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// New creates a new HTTP server.
func New(cfg *Config, handler http.Handler, logger observability.Logger) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Server{
		handler: handler,
		logger:  logger,
		config:  cfg,
	}
}

// Start listens and serves until Stop is called. It returns nil after a
// graceful stop, and returns nil without listening once Stop has been
// called or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if s.stopped || ctx.Err() != nil {
		s.mu.Unlock()
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.WithoutCancel(ctx), "tcp", s.config.Addr())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}

	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
		MaxHeaderBytes:    s.config.MaxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.running = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("read_timeout", s.config.ReadTimeout),
		observability.Duration("write_timeout", s.config.WriteTimeout),
	)

	err = httpServer.Serve(ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop stops the HTTP server gracefully, waiting for in-flight requests
// until ctx expires. A Stop before Start keeps the server from starting.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ListenAddr returns the bound address, or "" before Start.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
