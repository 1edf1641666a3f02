package health

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		provider   func() *fakeProvider
		wantErr    string
		wantCalled bool
	}{
		{
			name:       "select one succeeds",
			provider:   func() *fakeProvider { return newFakeProvider(1, nil) },
			wantCalled: true,
		},
		{
			name:       "query fails",
			provider:   func() *fakeProvider { return newFakeProvider(0, errors.New("connection reset by peer")) },
			wantErr:    "connection reset by peer",
			wantCalled: true,
		},
		{
			name:       "unexpected value",
			provider:   func() *fakeProvider { return newFakeProvider(2, nil) },
			wantErr:    "unexpected liveness result 2",
			wantCalled: true,
		},
		{
			name: "acquire fails",
			provider: func() *fakeProvider {
				p := newFakeProvider(1, nil)
				p.acquireErr = errors.New("pool exhausted")
				return p
			},
			wantErr: "pool exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := tt.provider()
			probe := DatabaseProbe(provider)

			assert.Equal(t, ProbeDatabase, probe.Name())
			assert.Equal(t, ProbeTypeDatabase, probe.Type())
			assert.True(t, probe.Mandatory())

			_, err := probe.check(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			if tt.wantCalled {
				assert.Equal(t, []string{"SELECT 1"}, provider.querier.queries)
			} else {
				assert.Empty(t, provider.querier.queries)
			}
			assert.Equal(t, provider.acquired.Load(), provider.released.Load(), "connection must be released")
		})
	}
}

func TestDatabaseProbe_NilProvider(t *testing.T) {
	t.Parallel()

	_, err := DatabaseProbe(nil).check(context.Background())
	assert.Error(t, err)
}

func TestRedisProbe(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	probe := RedisProbe(client)
	assert.Equal(t, ProbeCache, probe.Name())
	assert.Equal(t, ProbeTypeCache, probe.Type())
	assert.False(t, probe.Mandatory())

	_, err := probe.check(context.Background())
	require.NoError(t, err)

	mr.Close()

	_, err = probe.check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestRedisProbe_Options(t *testing.T) {
	t.Parallel()

	probe := RedisProbe(nil, WithMandatory(true), WithName("sessions"))
	assert.True(t, probe.Mandatory())
	assert.Equal(t, "sessions", probe.Name())

	_, err := probe.check(context.Background())
	assert.Error(t, err)
}

func TestSystemProbe(t *testing.T) {
	t.Parallel()

	samplerErr := errors.New("permission denied")

	tests := []struct {
		name      string
		sampler   Sampler
		limits    Thresholds
		wantData  bool
		wantErrIs error
		wantErr   bool
	}{
		{
			name:     "complete sample",
			sampler:  fakeSampler{snap: scenarioSnapshot()},
			wantData: true,
		},
		{
			name:     "within thresholds",
			sampler:  fakeSampler{snap: scenarioSnapshot()},
			limits:   Thresholds{MaxCPUPercent: 90, MaxMemoryPercent: 90, MaxDiskPercent: 90},
			wantData: true,
		},
		{
			name:      "cpu over threshold",
			sampler:   fakeSampler{snap: scenarioSnapshot()},
			limits:    Thresholds{MaxCPUPercent: 20},
			wantData:  true,
			wantErrIs: ErrThresholdExceeded,
		},
		{
			name:      "disk over threshold",
			sampler:   fakeSampler{snap: scenarioSnapshot()},
			limits:    Thresholds{MaxDiskPercent: 40},
			wantData:  true,
			wantErrIs: ErrThresholdExceeded,
		},
		{
			name: "disk unavailable",
			sampler: fakeSampler{
				snap: &SystemSnapshot{Platform: "linux", CPUPercent: float(3), Memory: &MemoryStats{TotalBytes: gib}},
				err:  samplerErr,
			},
			wantData:  true,
			wantErrIs: ErrIncompleteSample,
		},
		{
			name:      "no snapshot",
			sampler:   fakeSampler{err: samplerErr},
			wantErrIs: samplerErr,
		},
		{
			name:      "empty result",
			sampler:   fakeSampler{},
			wantErrIs: ErrIncompleteSample,
		},
		{
			name:    "nil sampler",
			sampler: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			probe := SystemProbe(tt.sampler, tt.limits)
			assert.False(t, probe.Mandatory())

			data, err := probe.check(context.Background())
			switch {
			case tt.wantErrIs != nil:
				assert.ErrorIs(t, err, tt.wantErrIs)
			case tt.wantErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}

			if tt.wantData {
				assert.IsType(t, &SystemSnapshot{}, data)
			} else {
				assert.Nil(t, data)
			}
		})
	}
}

func TestSystemProbe_PartialSampleKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("statfs: no such file or directory")
	snap := &SystemSnapshot{Platform: "linux", CPUPercent: float(3), Memory: &MemoryStats{}}

	_, err := SystemProbe(fakeSampler{snap: snap, err: cause}, Thresholds{}).check(context.Background())
	assert.ErrorIs(t, err, ErrIncompleteSample)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "missing disk")
}

func TestCustomProbe(t *testing.T) {
	t.Parallel()

	probe := CustomProbe("queue", func(context.Context) error { return errors.New("lagging") }, WithMandatory(false))
	assert.Equal(t, ProbeTypeCustom, probe.Type())
	assert.False(t, probe.Mandatory())

	res := runProbe(context.Background(), probe)
	assert.False(t, res.Healthy)
	assert.Equal(t, "lagging", res.Detail)
	assert.NotNil(t, res.Latency)

	var perr *ProbeError
	require.ErrorAs(t, res.Err, &perr)
	assert.Equal(t, "queue", perr.Probe)
}

func TestProbeError(t *testing.T) {
	t.Parallel()

	err := &ProbeError{Probe: "database", Err: ErrProbeTimeout}
	assert.Equal(t, "probe database: probe timed out", err.Error())
	assert.ErrorIs(t, err, ErrProbeTimeout)
	assert.ErrorIs(t, err, &ProbeError{})
	assert.ErrorIs(t, err, &ProbeError{Probe: "database"})
	assert.NotErrorIs(t, err, &ProbeError{Probe: "cache"})
}

func TestProbe_Options(t *testing.T) {
	t.Parallel()

	p := NewProbe("x", ProbeTypeCustom, nil)
	assert.True(t, p.Mandatory())
	assert.Equal(t, DefaultProbeTimeout, p.Timeout())

	p = NewProbe("x", ProbeTypeCustom, nil, WithTimeout(0), WithName(""))
	assert.Equal(t, DefaultProbeTimeout, p.Timeout())
	assert.Equal(t, "x", p.Name())
}
