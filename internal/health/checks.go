package health

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// Querier runs a single-row query on a borrowed connection.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ConnProvider lends a connection for the duration of fn and releases it
// when fn returns, whatever the outcome.
type ConnProvider interface {
	WithConn(ctx context.Context, fn func(ctx context.Context, q Querier) error) error
}

// livenessQuery is the database round trip.
const livenessQuery = "SELECT 1"

// DatabaseProbe returns the mandatory "database" probe. It borrows a
// connection and runs SELECT 1.
func DatabaseProbe(provider ConnProvider, opts ...ProbeOption) *Probe {
	return NewProbe(ProbeDatabase, ProbeTypeDatabase, func(ctx context.Context) (any, error) {
		if provider == nil {
			return nil, errors.New("database connection provider is nil")
		}

		err := provider.WithConn(ctx, func(ctx context.Context, q Querier) error {
			var one int
			if err := q.QueryRow(ctx, livenessQuery).Scan(&one); err != nil {
				return err
			}
			if one != 1 {
				return fmt.Errorf("unexpected liveness result %d", one)
			}
			return nil
		})
		return nil, err
	}, opts...)
}

// RedisProbe returns the optional "cache" probe.
func RedisProbe(client redis.UniversalClient, opts ...ProbeOption) *Probe {
	opts = append([]ProbeOption{WithMandatory(false)}, opts...)
	return NewProbe(ProbeCache, ProbeTypeCache, func(ctx context.Context) (any, error) {
		if client == nil {
			return nil, errors.New("redis client is nil")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return nil, nil
	}, opts...)
}

// Thresholds are upper bounds in percent. Zero disables a bound.
type Thresholds struct {
	MaxCPUPercent    float64
	MaxMemoryPercent float64
	MaxDiskPercent   float64
}

// SystemProbe returns the optional "system" probe. Its data is the
// *SystemSnapshot, even when the sample is partial or over a threshold.
func SystemProbe(sampler Sampler, limits Thresholds, opts ...ProbeOption) *Probe {
	opts = append([]ProbeOption{WithMandatory(false)}, opts...)
	return NewProbe(ProbeSystem, ProbeTypeSystem, func(ctx context.Context) (any, error) {
		if sampler == nil {
			return nil, errors.New("system sampler is nil")
		}

		snap, err := sampler.Sample(ctx)
		if snap == nil {
			if err == nil {
				err = ErrIncompleteSample
			}
			return nil, err
		}

		if missing := snap.Missing(); len(missing) > 0 {
			if err != nil {
				return snap, fmt.Errorf("%w: missing %s: %w", ErrIncompleteSample, strings.Join(missing, ", "), err)
			}
			return snap, fmt.Errorf("%w: missing %s", ErrIncompleteSample, strings.Join(missing, ", "))
		}

		return snap, limits.check(snap)
	}, opts...)
}

func (t Thresholds) check(s *SystemSnapshot) error {
	var errs []error
	if t.MaxCPUPercent > 0 && *s.CPUPercent > t.MaxCPUPercent {
		errs = append(errs, fmt.Errorf("%w: cpu %.2f%% > %.2f%%", ErrThresholdExceeded, *s.CPUPercent, t.MaxCPUPercent))
	}
	if t.MaxMemoryPercent > 0 && s.Memory.UsedPercent > t.MaxMemoryPercent {
		errs = append(errs, fmt.Errorf("%w: memory %.2f%% > %.2f%%", ErrThresholdExceeded, s.Memory.UsedPercent, t.MaxMemoryPercent))
	}
	if t.MaxDiskPercent > 0 && s.Disk.UsedPercent > t.MaxDiskPercent {
		errs = append(errs, fmt.Errorf("%w: disk %.2f%% > %.2f%%", ErrThresholdExceeded, s.Disk.UsedPercent, t.MaxDiskPercent))
	}
	return errors.Join(errs...)
}

// CustomProbe wraps a plain error-returning check.
func CustomProbe(name string, check func(ctx context.Context) error, opts ...ProbeOption) *Probe {
	return NewProbe(name, ProbeTypeCustom, func(ctx context.Context) (any, error) {
		return nil, check(ctx)
	}, opts...)
}
