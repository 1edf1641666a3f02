package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
)

// fakeRow implements pgx.Row.
type fakeRow struct {
	value int
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return errors.New("expected one destination")
	}
	p, ok := dest[0].(*int)
	if !ok {
		return errors.New("expected *int destination")
	}
	*p = r.value
	return nil
}

type fakeQuerier struct {
	row     fakeRow
	queries []string
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.queries = append(q.queries, sql)
	return q.row
}

// fakeProvider lends a fakeQuerier and counts acquire/release pairs.
type fakeProvider struct {
	mu         sync.Mutex
	querier    *fakeQuerier
	acquireErr error
	acquired   atomic.Int32
	released   atomic.Int32
	calls      atomic.Int32
}

func newFakeProvider(value int, scanErr error) *fakeProvider {
	return &fakeProvider{querier: &fakeQuerier{row: fakeRow{value: value, err: scanErr}}}
}

func (p *fakeProvider) WithConn(ctx context.Context, fn func(ctx context.Context, q Querier) error) error {
	p.calls.Add(1)
	if p.acquireErr != nil {
		return p.acquireErr
	}
	p.acquired.Add(1)
	defer p.released.Add(1)

	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(ctx, p.querier)
}

type fakeSampler struct {
	snap *SystemSnapshot
	err  error
}

func (s fakeSampler) Sample(context.Context) (*SystemSnapshot, error) {
	return s.snap, s.err
}

func float(v float64) *float64 { return &v }

const gib = 1 << 30

// scenarioSnapshot is CPU 25.5%, memory and disk half used.
func scenarioSnapshot() *SystemSnapshot {
	return &SystemSnapshot{
		Platform:   "linux-6.1.0-x86_64",
		CPUPercent: float(25.5),
		Memory: &MemoryStats{
			TotalBytes:     16 * gib,
			AvailableBytes: 8 * gib,
			UsedPercent:    50,
		},
		Disk: &DiskStats{
			TotalBytes:  100 * gib,
			FreeBytes:   50 * gib,
			UsedPercent: 50,
		},
	}
}

// staticProbe always returns the same outcome and counts its runs.
func staticProbe(name string, err error, runs *atomic.Int32, opts ...ProbeOption) *Probe {
	return NewProbe(name, ProbeTypeCustom, func(context.Context) (any, error) {
		if runs != nil {
			runs.Add(1)
		}
		return nil, err
	}, opts...)
}

// blockingProbe ignores its context until release is closed.
func blockingProbe(name string, release <-chan struct{}, opts ...ProbeOption) *Probe {
	return NewProbe(name, ProbeTypeCustom, func(context.Context) (any, error) {
		<-release
		return nil, nil
	}, opts...)
}

// fakeRunner returns a canned report.
type fakeRunner struct {
	report *Report
	err    error
	calls  map[Variant]int
	mu     sync.Mutex
}

func (f *fakeRunner) Run(_ context.Context, v Variant) (*Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[Variant]int)
	}
	f.calls[v]++
	if f.report != nil {
		r := *f.report
		r.Variant = v
		return &r, f.err
	}
	return nil, f.err
}
