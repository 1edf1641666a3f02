package health

import (
	"context"
	"time"
)

// CheckFunc performs one dependency check. It may return structured data
// together with an error; the data is kept on the result either way.
type CheckFunc func(ctx context.Context) (any, error)

// Probe is a named, independently executable dependency check.
type Probe struct {
	name      string
	probeType ProbeType
	mandatory bool
	timeout   time.Duration
	check     CheckFunc
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithMandatory sets whether an unhealthy result makes the report
// UNHEALTHY (mandatory) or only DEGRADED.
func WithMandatory(mandatory bool) ProbeOption {
	return func(p *Probe) {
		p.mandatory = mandatory
	}
}

// WithTimeout overrides DefaultProbeTimeout. Non-positive values are
// ignored.
func WithTimeout(timeout time.Duration) ProbeOption {
	return func(p *Probe) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithName overrides the probe name.
func WithName(name string) ProbeOption {
	return func(p *Probe) {
		if name != "" {
			p.name = name
		}
	}
}

// NewProbe creates a mandatory probe with the default timeout.
func NewProbe(name string, probeType ProbeType, check CheckFunc, opts ...ProbeOption) *Probe {
	p := &Probe{
		name:      name,
		probeType: probeType,
		mandatory: true,
		timeout:   DefaultProbeTimeout,
		check:     check,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the probe name.
func (p *Probe) Name() string { return p.name }

// Type returns the probe type.
func (p *Probe) Type() ProbeType { return p.probeType }

// Mandatory reports whether the probe is mandatory.
func (p *Probe) Mandatory() bool { return p.mandatory }

// Timeout returns the probe timeout.
func (p *Probe) Timeout() time.Duration { return p.timeout }

// ProbeResult is the outcome of running one probe.
type ProbeResult struct {
	Name      string
	Type      ProbeType
	Mandatory bool
	Healthy   bool

	// Latency is nil when the probe never returned.
	Latency *time.Duration

	// Detail explains an unhealthy result.
	Detail string

	// Data is the probe's structured payload, e.g. *SystemSnapshot.
	Data any

	// Err is the failure behind an unhealthy result.
	Err error
}

// LatencyMillis returns the latency in milliseconds rounded to two
// decimals, or nil when unknown.
func (r ProbeResult) LatencyMillis() *float64 {
	if r.Latency == nil {
		return nil
	}
	ms := round2(float64(*r.Latency) / float64(time.Millisecond))
	return &ms
}

// missingResult stands in for a planned probe that was never registered.
// A missing database probe stays mandatory; any other name is optional.
func missingResult(name string) ProbeResult {
	res := ProbeResult{
		Name:    name,
		Type:    ProbeTypeUnknown,
		Healthy: false,
		Detail:  ErrProbeNotFound.Error(),
		Err:     &ProbeError{Probe: name, Err: ErrProbeNotFound},
	}
	if name == ProbeDatabase {
		res.Type = ProbeTypeDatabase
		res.Mandatory = true
	}
	return res
}
