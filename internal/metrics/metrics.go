// Package metrics records scheduling runs as Prometheus metrics on a private
// registry. A nil *Recorder is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the scheduling metrics.
type Recorder struct {
	registry        *prometheus.Registry
	scheduled       *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	computationPeak *prometheus.GaugeVec
	modulePeak      *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scheduled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "memsched",
				Name:      "computations_scheduled_total",
				Help:      "Total number of computations scheduled",
			},
			[]string{"strategy"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "memsched",
				Name:      "schedule_duration_seconds",
				Help:      "Time spent scheduling one computation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"strategy"},
		),
		computationPeak: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "memsched",
				Name:      "computation_peak_memory_bytes",
				Help:      "Minimum memory of the produced sequence of one computation",
			},
			[]string{"module", "computation"},
		),
		modulePeak: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "memsched",
				Name:      "module_peak_memory_bytes",
				Help:      "Minimum memory of the entry computation including invoked computations",
			},
			[]string{"module"},
		),
	}
	r.registry.MustRegister(r.scheduled, r.duration, r.computationPeak, r.modulePeak)
	return r
}

// Registry exposes the underlying registry, e.g. for tests or an HTTP
// handler.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveComputation records one scheduled computation.
func (r *Recorder) ObserveComputation(strategy, module, computation string, took time.Duration, peakBytes int64) {
	if r == nil {
		return
	}
	r.scheduled.WithLabelValues(strategy).Inc()
	r.duration.WithLabelValues(strategy).Observe(took.Seconds())
	r.computationPeak.WithLabelValues(module, computation).Set(float64(peakBytes))
}

// ObserveModule records the peak memory of a whole module.
func (r *Recorder) ObserveModule(module string, peakBytes int64) {
	if r == nil {
		return
	}
	r.modulePeak.WithLabelValues(module).Set(float64(peakBytes))
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
