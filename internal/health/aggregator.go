package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/vyrodovalexey/apibase/internal/observability"
)

// Plan maps a variant to the probe names it runs. A variant absent from
// the plan falls back to the default plan.
type Plan map[Variant][]string

// Report is the outcome of one health check invocation.
type Report struct {
	Variant     Variant
	Status      Status
	Results     []ProbeResult
	GeneratedAt time.Time
}

// Result returns the named result.
func (r *Report) Result(name string) (ProbeResult, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return ProbeResult{}, false
}

// DeriveStatus classifies results: any unhealthy mandatory probe gives
// UNHEALTHY, otherwise any unhealthy optional probe gives DEGRADED.
func DeriveStatus(results []ProbeResult) Status {
	status := StatusHealthy
	for _, r := range results {
		if r.Healthy {
			continue
		}
		if r.Mandatory {
			return StatusUnhealthy
		}
		status = StatusDegraded
	}
	return status
}

// Aggregator runs probes for a variant and derives the overall status.
// Results are never cached.
type Aggregator struct {
	mu       sync.RWMutex
	probes   map[string]*Probe
	order    []string
	plan     Plan
	parallel bool
	logger   observability.Logger
	tracer   trace.Tracer
	metrics  *Metrics
	now      func() time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithPlan overrides the probe list of the given variants.
func WithPlan(plan Plan) AggregatorOption {
	return func(a *Aggregator) {
		for v, names := range plan {
			a.plan[v] = append([]string(nil), names...)
		}
	}
}

// WithParallel sets whether probes run concurrently. Defaults to true.
func WithParallel(parallel bool) AggregatorOption {
	return func(a *Aggregator) {
		a.parallel = parallel
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer records a span per probe.
func WithTracer(tracer trace.Tracer) AggregatorOption {
	return func(a *Aggregator) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithMetrics records probe outcomes.
func WithMetrics(m *Metrics) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// WithClock sets the report timestamp source.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator creates an Aggregator with no probes registered.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		probes:   make(map[string]*Probe),
		plan:     make(Plan),
		parallel: true,
		logger:   observability.NopLogger(),
		tracer:   noop.NewTracerProvider().Tracer("health"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds probes. Names must be unique.
func (a *Aggregator) Register(probes ...*Probe) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range probes {
		if p == nil {
			continue
		}
		if _, exists := a.probes[p.Name()]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateProbe, p.Name())
		}
		a.probes[p.Name()] = p
		a.order = append(a.order, p.Name())
	}
	return nil
}

// PlanFor returns the probe names run for a variant. Without an explicit
// plan, basic and liveness run nothing, readiness runs the database probe
// and detailed runs database, system and every other registered probe.
func (a *Aggregator) PlanFor(v Variant) []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if names, ok := a.plan[v]; ok {
		return append([]string(nil), names...)
	}

	switch v {
	case VariantReadiness:
		return []string{ProbeDatabase}
	case VariantDetailed:
		names := []string{ProbeDatabase, ProbeSystem}
		for _, name := range a.order {
			if name != ProbeDatabase && name != ProbeSystem {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}

// Run executes the variant's probes and builds a fresh report. Probe
// failures and timeouts become unhealthy results; an error is returned
// only when no report can be built.
func (a *Aggregator) Run(ctx context.Context, v Variant) (report *Report, err error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", ErrAggregationFailure, v)
	}

	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("%w: %v", ErrAggregationFailure, r)
		}
	}()

	names := a.PlanFor(v)
	results := make([]ProbeResult, len(names))

	a.mu.RLock()
	probes := make([]*Probe, len(names))
	for i, name := range names {
		probes[i] = a.probes[name]
	}
	a.mu.RUnlock()

	if a.parallel {
		var g errgroup.Group
		for i := range probes {
			g.Go(func() error {
				results[i] = a.execute(ctx, names[i], probes[i])
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range probes {
			results[i] = a.execute(ctx, names[i], probes[i])
		}
	}

	report = &Report{
		Variant:     v,
		Status:      DeriveStatus(results),
		Results:     results,
		GeneratedAt: a.now().UTC(),
	}

	if a.metrics != nil {
		a.metrics.RecordReport(report)
	}

	a.logger.WithContext(ctx).Debug("health check completed",
		observability.String("variant", string(v)),
		observability.String("status", string(report.Status)),
		observability.Int("probes", len(results)),
	)

	return report, nil
}

// execute runs one probe inside its own span.
func (a *Aggregator) execute(ctx context.Context, name string, p *Probe) ProbeResult {
	if p == nil {
		res := missingResult(name)
		a.logFailure(ctx, res)
		return res
	}

	ctx, span := a.tracer.Start(ctx, "health.probe "+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("probe.name", name),
			attribute.String("probe.type", string(p.Type())),
			attribute.Bool("probe.mandatory", p.Mandatory()),
		),
	)
	defer span.End()

	res := runProbe(ctx, p)

	span.SetAttributes(attribute.Bool("probe.healthy", res.Healthy))
	if !res.Healthy {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Detail)
		a.logFailure(ctx, res)
	}

	return res
}

func (a *Aggregator) logFailure(ctx context.Context, res ProbeResult) {
	a.logger.WithContext(ctx).Warn("health probe failed",
		observability.String("probe", res.Name),
		observability.String("type", string(res.Type)),
		observability.Bool("mandatory", res.Mandatory),
		observability.String("detail", res.Detail),
	)
}

type probeOutcome struct {
	data    any
	err     error
	latency time.Duration
}

// runProbe runs p with its own timeout. The check runs in a separate
// goroutine so a probe that ignores its context is abandoned rather than
// waited on.
func runProbe(ctx context.Context, p *Probe) ProbeResult {
	res := ProbeResult{
		Name:      p.Name(),
		Type:      p.Type(),
		Mandatory: p.Mandatory(),
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout())
	defer cancel()

	done := make(chan probeOutcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- probeOutcome{
					err:     fmt.Errorf("%w: panic: %v", ErrProbeFailure, r),
					latency: time.Since(start),
				}
			}
		}()
		data, err := p.check(ctx)
		done <- probeOutcome{data: data, err: err, latency: time.Since(start)}
	}()

	select {
	case out := <-done:
		res.Latency = &out.latency
		res.Data = out.data
		if out.err != nil {
			res.Detail = out.err.Error()
			res.Err = &ProbeError{Probe: p.Name(), Err: out.err}
			if errors.Is(out.err, context.DeadlineExceeded) {
				res.Detail = DetailTimeout
				res.Err = &ProbeError{Probe: p.Name(), Err: ErrProbeTimeout}
			}
			return res
		}
		res.Healthy = true
		return res

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res.Detail = DetailTimeout
			res.Err = &ProbeError{Probe: p.Name(), Err: ErrProbeTimeout}
		} else {
			res.Detail = DetailCancelled
			res.Err = &ProbeError{Probe: p.Name(), Err: ctx.Err()}
		}
		return res
	}
}
