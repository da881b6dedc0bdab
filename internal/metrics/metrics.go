// Package metrics records scheduler and controller activity as Prometheus
// metrics. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aurashow"

// Recorder holds the registered collectors.
type Recorder struct {
	registry *prometheus.Registry

	ticks         prometheus.Counter
	ticksSkipped  prometheus.Counter
	submitted     prometheus.Counter
	dropped       prometheus.Counter
	queueDepth    prometheus.Gauge
	applied       *prometheus.CounterVec
	applyErrors   *prometheus.CounterVec
	applyDuration prometheus.Histogram
	controllerLed *prometheus.GaugeVec
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		ticks: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ticks_total",
			Help: "Scheduler ticks executed.",
		}),
		ticksSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "script_steps_skipped_total",
			Help: "Ticks on which the script was still busy with its previous step.",
		}),
		submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_submitted_total",
			Help: "Colour commands accepted into the hand-off queue.",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_dropped_total",
			Help: "Colour commands discarded by the queue overflow policy.",
		}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_depth",
			Help: "Commands waiting in the hand-off queue at the start of the last drain.",
		}),
		applied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_applied_total",
			Help: "Colour frames written to a controller.",
		}, []string{"controller"}),
		applyErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "apply_errors_total",
			Help: "Colour frames that failed to apply.",
		}, []string{"controller"}),
		applyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "apply_duration_seconds",
			Help:    "Time spent writing one colour frame to the bus.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
		controllerLed: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "controller_leds",
			Help: "LED count of each registered controller.",
		}, []string{"controller"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Tick() {
	if r != nil {
		r.ticks.Inc()
	}
}

func (r *Recorder) StepSkipped() {
	if r != nil {
		r.ticksSkipped.Inc()
	}
}

func (r *Recorder) Submitted() {
	if r != nil {
		r.submitted.Inc()
	}
}

func (r *Recorder) Dropped() {
	if r != nil {
		r.dropped.Inc()
	}
}

func (r *Recorder) QueueDepth(n int) {
	if r != nil {
		r.queueDepth.Set(float64(n))
	}
}

func (r *Recorder) Controller(name string, leds int) {
	if r != nil {
		r.controllerLed.WithLabelValues(name).Set(float64(leds))
	}
}

// Applied records one frame write and its outcome.
func (r *Recorder) Applied(controller string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.applyDuration.Observe(d.Seconds())
	if err != nil {
		r.applyErrors.WithLabelValues(controller).Inc()
		return
	}
	r.applied.WithLabelValues(controller).Inc()
}
