// Package metrics records scan outcomes as Prometheus metrics and writes them
// in the textfile format read by node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "secmeta"

// Recorder captures scan outcomes.
type Recorder interface {
	ObserveDetection(detector, severity string, issues int)
	ObserveScanDuration(seconds float64)
	WriteTextfile(path string) error
}

// Noop implements Recorder without emitting anything.
type Noop struct{}

// ObserveDetection, ObserveScanDuration and WriteTextfile do nothing.
func (Noop) ObserveDetection(string, string, int) {}
func (Noop) ObserveScanDuration(float64)          {}
func (Noop) WriteTextfile(string) error           { return nil }

// Prom implements Recorder backed by a private Prometheus registry.
type Prom struct {
	registry   *prometheus.Registry
	detections *prometheus.CounterVec
	issues     *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewProm builds a recorder with its own registry.
func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Detector results by detector and severity",
		}, []string{"detector", "severity"}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Advisory issues reported by detector",
		}, []string{"detector"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a scan run",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	p.registry.MustRegister(p.detections, p.issues, p.duration)
	return p
}

// ObserveDetection counts one detector result and the issues it carried.
func (p *Prom) ObserveDetection(detector, severity string, issues int) {
	p.detections.WithLabelValues(detector, severity).Inc()
	if issues > 0 {
		p.issues.WithLabelValues(detector).Add(float64(issues))
	}
}

// ObserveScanDuration records the wall time of one scan run.
func (p *Prom) ObserveScanDuration(seconds float64) {
	p.duration.Observe(seconds)
}

// WriteTextfile atomically writes the current metrics to path.
func (p *Prom) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

// Registry exposes the underlying registry.
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}
