package monitoring

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics counts what one report run decoded and wrote. The report is a
// batch job, so the metrics are written once at the end in the node_exporter
// textfile format instead of being served.
type RunMetrics struct {
	registry *prometheus.Registry

	ClimbsDecoded  prometheus.Counter
	HoldUses       *prometheus.CounterVec
	OutOfBounds    *prometheus.CounterVec
	UnknownRoles   prometheus.Counter
	RejectedStats  prometheus.Counter
	Artifacts      *prometheus.CounterVec
	LastRunSeconds prometheus.Gauge
}

// NewRunMetrics registers the run metrics on a fresh registry.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		ClimbsDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kilter_report",
			Name:      "climbs_decoded_total",
			Help:      "Climbs whose hold encoding was decoded.",
		}),
		HoldUses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kilter_report",
			Name:      "hold_uses_total",
			Help:      "Classified hold uses by role, in or out of the plotted grid.",
		}, []string{"role"}),
		OutOfBounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kilter_report",
			Name:      "hold_out_of_bounds_total",
			Help:      "Hold uses whose board cell falls outside the plotted grid.",
		}, []string{"role"}),
		UnknownRoles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kilter_report",
			Name:      "unknown_roles_total",
			Help:      "Hold uses with a role code outside every known role.",
		}),
		RejectedStats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kilter_report",
			Name:      "rejected_stats_total",
			Help:      "Climb statistics rows whose grade or angle falls outside the tables.",
		}),
		Artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kilter_report",
			Name:      "artifacts_written_total",
			Help:      "Report artifacts written, by kind.",
		}, []string{"kind"}),
		LastRunSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kilter_report",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last report run.",
		}),
	}
	m.registry.MustRegister(
		m.ClimbsDecoded, m.HoldUses, m.OutOfBounds, m.UnknownRoles,
		m.RejectedStats, m.Artifacts, m.LastRunSeconds,
	)
	return m
}

// Gatherer exposes the registry for tests and exporters.
func (m *RunMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the metrics atomically to path.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
