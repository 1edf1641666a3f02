package config

import (
	"reflect"

	"github.com/vyrodovalexey/apibase/internal/observability"
)

// LevelSetter is the part of the logger a reload needs.
type LevelSetter interface {
	SetLevel(level string) error
	Level() string
}

// ReloadHandler applies the parts of a new configuration that can change
// at runtime. Only logging.level is live; every other change is reported
// as requiring a restart.
type ReloadHandler struct {
	current *Config
	level   LevelSetter
	logger  observability.Logger
}

// NewReloadHandler creates a handler starting from the running config.
func NewReloadHandler(current *Config, level LevelSetter, logger observability.Logger) *ReloadHandler {
	return &ReloadHandler{
		current: current,
		level:   level,
		logger:  logger,
	}
}

// Apply is a ConfigCallback.
func (h *ReloadHandler) Apply(next *Config) {
	if next.Logging.Level != "" && next.Logging.Level != h.level.Level() {
		if err := h.level.SetLevel(next.Logging.Level); err != nil {
			h.logger.Warn("failed to apply log level",
				observability.String("level", next.Logging.Level),
				observability.Error(err),
			)
		} else {
			h.logger.Info("log level changed",
				observability.String("level", next.Logging.Level),
			)
		}
	}

	if changed := restartOnlyChanges(h.current, next); len(changed) > 0 {
		h.logger.Warn("configuration changes require restart",
			observability.Strings("sections", changed),
		)
	}
}

// restartOnlyChanges lists top-level sections, other than the log level,
// that differ between a and b.
func restartOnlyChanges(a, b *Config) []string {
	var changed []string

	la, lb := a.Logging, b.Logging
	la.Level, lb.Level = "", ""

	sections := []struct {
		name string
		a, b any
	}{
		{"app", a.App, b.App},
		{"server", a.Server, b.Server},
		{"database", a.Database, b.Database},
		{"redis", a.Redis, b.Redis},
		{"health", a.Health, b.Health},
		{"logging", la, lb},
		{"tracing", a.Tracing, b.Tracing},
		{"metrics", a.Metrics, b.Metrics},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.a, s.b) {
			changed = append(changed, s.name)
		}
	}
	return changed
}
