package health

import "time"

// Status is the overall classification of a report.
type Status string

const (
	StatusHealthy   Status = "HEALTHY"
	StatusDegraded  Status = "DEGRADED"
	StatusUnhealthy Status = "UNHEALTHY"
)

// String returns the lowercase form used in response bodies.
func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return string(s)
	}
}

// Variant selects which probes a health check runs.
type Variant string

const (
	VariantBasic     Variant = "basic"
	VariantDetailed  Variant = "detailed"
	VariantLiveness  Variant = "liveness"
	VariantReadiness Variant = "readiness"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	switch v {
	case VariantBasic, VariantDetailed, VariantLiveness, VariantReadiness:
		return true
	default:
		return false
	}
}

// ProbeType names the kind of dependency a probe checks.
type ProbeType string

const (
	ProbeTypeDatabase ProbeType = "database"
	ProbeTypeSystem   ProbeType = "system"
	ProbeTypeCache    ProbeType = "cache"
	ProbeTypeCustom   ProbeType = "custom"
	ProbeTypeUnknown  ProbeType = "unknown"
)

// Well-known probe names.
const (
	ProbeDatabase = "database"
	ProbeSystem   = "system"
	ProbeCache    = "cache"
)

// DefaultProbeTimeout bounds a probe that was built without WithTimeout.
const DefaultProbeTimeout = 5 * time.Second

// Detail strings placed on unhealthy results.
const (
	DetailTimeout   = "timeout"
	DetailCancelled = "cancelled"
)

// Body values.
const (
	bodyStatusAlive     = "alive"
	bodyStatusReady     = "ready"
	bodyStatusNotReady  = "not_ready"
	bodyDepHealthy      = "healthy"
	bodyDepUnhealthy    = "unhealthy"
	bodyAggregationFail = "Health check failed"
)
