package health

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrProbeTimeout is reported when a probe does not finish within its
	// timeout.
	ErrProbeTimeout = errors.New("probe timed out")

	// ErrProbeFailure wraps errors and panics raised by a probe.
	ErrProbeFailure = errors.New("probe failed")

	// ErrAggregationFailure is returned by Aggregator.Run when a report
	// cannot be built at all.
	ErrAggregationFailure = errors.New("health aggregation failed")

	// ErrProbeNotFound marks a planned probe that was never registered.
	ErrProbeNotFound = errors.New("probe not registered")

	// ErrIncompleteSample is returned by the system probe when the
	// sampler could not produce every section of the snapshot.
	ErrIncompleteSample = errors.New("incomplete system sample")

	// ErrDuplicateProbe is returned when a probe name is registered twice.
	ErrDuplicateProbe = errors.New("probe already registered")

	// ErrThresholdExceeded is returned when a resource is above its limit.
	ErrThresholdExceeded = errors.New("resource threshold exceeded")
)

// ProbeError carries the probe name alongside the underlying failure.
type ProbeError struct {
	Probe string
	Err   error
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Probe, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a *ProbeError for the same probe.
func (e *ProbeError) Is(target error) bool {
	t, ok := target.(*ProbeError)
	if !ok {
		return false
	}
	return t.Probe == "" || t.Probe == e.Probe
}
