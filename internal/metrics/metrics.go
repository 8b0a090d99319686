package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "postline"

// Recorder owns the daemon's collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	uploads        *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	firings        *prometheus.CounterVec
	queueItems     *prometheus.GaugeVec
	recovered      prometheus.Counter
	storeErrors    prometheus.Counter
	lastPosted     prometheus.Gauge
}

// New builds a Recorder on a private registry that also exposes the Go and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_attempts_total",
			Help:      "Publish attempts by outcome.",
		}, []string{"outcome"}),
		uploadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upload_duration_seconds",
			Help:      "Wall-clock duration of publish attempts.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"outcome"}),
		firings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "firings_total",
			Help:      "Scheduler firings by trigger and result.",
		}, []string{"trigger", "result"}),
		queueItems: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_items",
			Help:      "Queue items by status.",
		}, []string{"status"}),
		recovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovered_items_total",
			Help:      "In-progress items requeued by stale recovery.",
		}),
		storeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Queue store failures observed by the scheduler.",
		}),
		lastPosted: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_posted_timestamp_seconds",
			Help:      "Unix time of the most recent successful post.",
		}),
	}
}

// ObserveUpload records one publish attempt.
func (r *Recorder) ObserveUpload(outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome).Inc()
	r.uploadDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if outcome == "success" {
		r.lastPosted.SetToCurrentTime()
	}
}

// ObserveFiring records one scheduler firing.
func (r *Recorder) ObserveFiring(trigger, result string) {
	if r == nil {
		return
	}
	r.firings.WithLabelValues(trigger, result).Inc()
}

// SetQueueItems replaces the per-status gauges.
func (r *Recorder) SetQueueItems(counts map[string]int) {
	if r == nil {
		return
	}
	for status, count := range counts {
		r.queueItems.WithLabelValues(status).Set(float64(count))
	}
}

// AddRecovered counts items requeued by stale recovery.
func (r *Recorder) AddRecovered(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.recovered.Add(float64(n))
}

// IncStoreErrors counts a store failure.
func (r *Recorder) IncStoreErrors() {
	if r == nil {
		return
	}
	r.storeErrors.Inc()
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
