package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters for one rotate-backups invocation. Each instance
// owns its own registry so it can be written out as a node_exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	Decisions   *prometheus.CounterVec
	Deletions   *prometheus.CounterVec
	Excluded    *prometheus.CounterVec
	Targets     *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	LastSuccess *prometheus.GaugeVec
}

// NewMetrics registers the rotation metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rb_decisions_total",
			Help: "Backups classified by the rotation plan, by action.",
		}, []string{"location", "action"}),
		Deletions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rb_deletions_total",
			Help: "Delete operations issued against storage, by result.",
		}, []string{"location", "result"}),
		Excluded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rb_excluded_total",
			Help: "Names removed from consideration by include, exclude or ignore rules.",
		}, []string{"location"}),
		Targets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rb_targets_total",
			Help: "Rotation targets processed, by result.",
		}, []string{"result"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rb_target_duration_seconds",
			Help:    "Time spent rotating a single location.",
			Buckets: prometheus.DefBuckets,
		}, []string{"location"}),
		LastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rb_last_success_timestamp_seconds",
			Help: "Unix time of the last rotation of a location that finished without errors.",
		}, []string{"location"}),
	}
}

// Registry exposes the underlying registry as a Gatherer.
func (m *Metrics) Registry() prometheus.Gatherer {
	return m.registry
}

// ObserveTarget records the outcome of rotating one location.
func (m *Metrics) ObserveTarget(location string, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(location).Observe(elapsed.Seconds())
	if failed {
		m.Targets.WithLabelValues("failure").Inc()
		return
	}
	m.Targets.WithLabelValues("success").Inc()
	m.LastSuccess.WithLabelValues(location).SetToCurrentTime()
}

// ObserveDecision counts a single keep or discard decision.
func (m *Metrics) ObserveDecision(location, action string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(location, action).Inc()
}

// ObserveDeletion counts one delete call.
func (m *Metrics) ObserveDeletion(location string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Deletions.WithLabelValues(location, result).Inc()
}

// ObserveExcluded counts names filtered out before planning.
func (m *Metrics) ObserveExcluded(location string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Excluded.WithLabelValues(location).Add(float64(n))
}

// WriteTextfile writes the metrics in the text exposition format to path,
// atomically replacing any previous file.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
