package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes probe outcomes. It is created per registry; nothing is
// registered globally.
type Metrics struct {
	checksTotal   *prometheus.CounterVec
	probeUp       *prometheus.GaugeVec
	probeDuration *prometheus.HistogramVec
}

// NewMetrics creates health metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of health checks performed",
			},
			[]string{"variant", "status"},
		),
		probeUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "probe_up",
				Help:      "Last probe result (1=healthy, 0=unhealthy)",
			},
			[]string{"probe", "type"},
		),
		probeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "probe_duration_seconds",
				Help:      "Probe latency for probes that returned",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"probe"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.checksTotal, m.probeUp, m.probeDuration)
	}
	return m
}

// RecordReport updates every metric from a finished report.
func (m *Metrics) RecordReport(r *Report) {
	m.checksTotal.WithLabelValues(string(r.Variant), r.Status.String()).Inc()

	for _, res := range r.Results {
		up := 0.0
		if res.Healthy {
			up = 1
		}
		m.probeUp.WithLabelValues(res.Name, string(res.Type)).Set(up)
		if res.Latency != nil {
			m.probeDuration.WithLabelValues(res.Name).Observe(res.Latency.Seconds())
		}
	}
}
