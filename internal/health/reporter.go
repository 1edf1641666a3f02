package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apibase/internal/observability"
)

// Runner builds a report for a variant. *Aggregator implements it.
type Runner interface {
	Run(ctx context.Context, v Variant) (*Report, error)
}

// AppInfo is surfaced in the basic and detailed views.
type AppInfo struct {
	Name    string
	Version string
	Debug   bool
	Testing bool
}

// BasicResponse is the /health body.
type BasicResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	AppName   string    `json:"app_name"`
}

// LivenessResponse is the /health/liveness body.
type LivenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the /health/readiness body.
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// DetailedResponse is the /health/detailed body.
type DetailedResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Version     string                 `json:"version"`
	AppName     string                 `json:"app_name"`
	Environment EnvironmentInfo        `json:"environment"`
	Database    DependencyStatus       `json:"database"`
	System      *SystemInfo            `json:"system"`
	Checks      map[string]CheckStatus `json:"checks,omitempty"`
}

// EnvironmentInfo reports runtime flags.
type EnvironmentInfo struct {
	Debug   bool `json:"debug"`
	Testing bool `json:"testing"`
}

// DependencyStatus is "healthy" or "unhealthy: <detail>" with the round
// trip time.
type DependencyStatus struct {
	Status         string   `json:"status"`
	ResponseTimeMS *float64 `json:"response_time_ms"`
}

// CheckStatus describes an additional probe.
type CheckStatus struct {
	Status         string   `json:"status"`
	ResponseTimeMS *float64 `json:"response_time_ms"`
	Detail         string   `json:"detail,omitempty"`
}

// SystemInfo is the resource section.
type SystemInfo struct {
	Platform        string      `json:"platform"`
	GoVersion       string      `json:"go_version"`
	CPUUsagePercent *float64    `json:"cpu_usage_percent"`
	Memory          *MemoryInfo `json:"memory"`
	Disk            *DiskInfo   `json:"disk"`
}

// MemoryInfo is memory usage in GiB.
type MemoryInfo struct {
	TotalGB     float64 `json:"total_gb"`
	AvailableGB float64 `json:"available_gb"`
	UsedPercent float64 `json:"used_percent"`
}

// DiskInfo is disk usage in GiB.
type DiskInfo struct {
	TotalGB     float64 `json:"total_gb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

// AggregationFailure is the body detail when no report could be built.
type AggregationFailure struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

// Reporter formats health reports into HTTP responses.
type Reporter struct {
	runner Runner
	app    AppInfo
	logger observability.Logger
	now    func() time.Time
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

// WithReporterLogger sets the logger.
func WithReporterLogger(logger observability.Logger) ReporterOption {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReporterClock sets the timestamp source of probe-less views.
func WithReporterClock(now func() time.Time) ReporterOption {
	return func(r *Reporter) {
		if now != nil {
			r.now = now
		}
	}
}

// NewReporter creates a Reporter.
func NewReporter(runner Runner, app AppInfo, opts ...ReporterOption) *Reporter {
	r := &Reporter{
		runner: runner,
		app:    app,
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterRoutes mounts the four views under group.
func (r *Reporter) RegisterRoutes(group gin.IRoutes) {
	group.GET("/health", r.Basic)
	group.GET("/health/detailed", r.Detailed)
	group.GET("/health/liveness", r.Liveness)
	group.GET("/health/readiness", r.Readiness)
}

// Basic answers 200 without running any probe.
func (r *Reporter) Basic(c *gin.Context) {
	c.JSON(http.StatusOK, BasicResponse{
		Status:    StatusHealthy.String(),
		Timestamp: r.now().UTC(),
		Version:   r.app.Version,
		AppName:   r.app.Name,
	})
}

// Liveness answers 200 without running any probe.
func (r *Reporter) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    bodyStatusAlive,
		Timestamp: r.now().UTC(),
	})
}

// Readiness runs the readiness plan and answers 200 only when the
// database probe is healthy.
func (r *Reporter) Readiness(c *gin.Context) {
	report, ok := r.run(c, VariantReadiness)
	if !ok {
		return
	}

	db, found := report.Result(ProbeDatabase)
	ready := found && db.Healthy

	body := ReadinessResponse{
		Status:    bodyStatusReady,
		Timestamp: report.GeneratedAt,
		Checks:    map[string]string{ProbeDatabase: bodyDepHealthy},
	}
	if !ready {
		body.Status = bodyStatusNotReady
		body.Checks[ProbeDatabase] = bodyDepUnhealthy
		// Not wrapped in "detail", unlike the detailed view: orchestrators
		// read status and checks at the top level of both 200 and 503.
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// Detailed runs the detailed plan. Anything other than HEALTHY is a 503
// with the full body wrapped in "detail".
func (r *Reporter) Detailed(c *gin.Context) {
	report, ok := r.run(c, VariantDetailed)
	if !ok {
		return
	}

	body := r.detailedBody(report)
	if report.Status != StatusHealthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": body})
		return
	}
	c.JSON(http.StatusOK, body)
}

// run executes a variant and writes the 500 response itself when the
// report cannot be built.
func (r *Reporter) run(c *gin.Context, v Variant) (*Report, bool) {
	report, err := r.runner.Run(c.Request.Context(), v)
	if err == nil && report != nil {
		return report, true
	}
	if err == nil {
		err = ErrAggregationFailure
	}

	_ = c.Error(err)
	r.logger.WithContext(c.Request.Context()).Error("health check failed",
		observability.String("variant", string(v)),
		observability.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": AggregationFailure{
		Status:    StatusUnhealthy.String(),
		Timestamp: r.now().UTC(),
		Error:     bodyAggregationFail,
	}})
	return nil, false
}

func (r *Reporter) detailedBody(report *Report) DetailedResponse {
	body := DetailedResponse{
		Status:    report.Status.String(),
		Timestamp: report.GeneratedAt,
		Version:   r.app.Version,
		AppName:   r.app.Name,
		Environment: EnvironmentInfo{
			Debug:   r.app.Debug,
			Testing: r.app.Testing,
		},
		Database: DependencyStatus{Status: bodyDepUnhealthy + ": " + ErrProbeNotFound.Error()},
	}

	for _, res := range report.Results {
		switch res.Name {
		case ProbeDatabase:
			body.Database = dependencyStatus(res)
		case ProbeSystem:
			if snap, ok := res.Data.(*SystemSnapshot); ok && snap != nil {
				body.System = systemInfo(snap)
			}
		default:
			if body.Checks == nil {
				body.Checks = make(map[string]CheckStatus)
			}
			cs := CheckStatus{Status: bodyDepHealthy, ResponseTimeMS: res.LatencyMillis()}
			if !res.Healthy {
				cs.Status = bodyDepUnhealthy
				cs.Detail = res.Detail
			}
			body.Checks[res.Name] = cs
		}
	}

	return body
}

func dependencyStatus(res ProbeResult) DependencyStatus {
	status := bodyDepHealthy
	if !res.Healthy {
		status = bodyDepUnhealthy + ": " + res.Detail
	}
	return DependencyStatus{Status: status, ResponseTimeMS: res.LatencyMillis()}
}

func systemInfo(s *SystemSnapshot) *SystemInfo {
	info := &SystemInfo{
		Platform:        s.Platform,
		GoVersion:       runtime.Version(),
		CPUUsagePercent: s.CPUPercent,
	}
	if s.Memory != nil {
		info.Memory = &MemoryInfo{
			TotalGB:     gigabytes(s.Memory.TotalBytes),
			AvailableGB: gigabytes(s.Memory.AvailableBytes),
			UsedPercent: round2(s.Memory.UsedPercent),
		}
	}
	if s.Disk != nil {
		info.Disk = &DiskInfo{
			TotalGB:     gigabytes(s.Disk.TotalBytes),
			FreeGB:      gigabytes(s.Disk.FreeBytes),
			UsedPercent: round2(s.Disk.UsedPercent),
		}
	}
	return info
}
