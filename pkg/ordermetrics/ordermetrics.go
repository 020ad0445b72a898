// Package ordermetrics exposes Prometheus counters for rank mutations.
package ordermetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zen_order"

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	conflicts  *prometheus.CounterVec
	rewritten  *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Ordering operations by kind, collection and outcome.",
		}, []string{"op", "collection", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Wall time of ordering operations including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op", "collection"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Optimistic concurrency conflicts detected, retried or not.",
		}, []string{"op", "collection"}),
		rewritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranks_rewritten_total",
			Help:      "Rows whose rank was actually written.",
		}, []string{"collection"}),
	}
	reg.MustRegister(
		r.operations, r.duration, r.conflicts, r.rewritten,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Observe(op, collection, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, collection, result).Inc()
	r.duration.WithLabelValues(op, collection).Observe(elapsed.Seconds())
}

func (r *Recorder) Conflict(op, collection string) {
	if r == nil {
		return
	}
	r.conflicts.WithLabelValues(op, collection).Inc()
}

func (r *Recorder) Rewritten(collection string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rewritten.WithLabelValues(collection).Add(float64(n))
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
