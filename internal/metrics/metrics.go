// Package metrics exposes the Prometheus instrumentation surface of
// the worker process.
// Grounded on the teacher's cmd/worker/main.go promauto var block,
// moved into its own package and parameterized by queue/task name
// instead of a hardcoded "email"/"image_resize" label set.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric dsq exports. The worker command builds
// one and hands it to the worker loop and the queue-depth collector.
type Registry struct {
	Processed    *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec
	QueueDepth   *prometheus.GaugeVec
	QueueLatency *prometheus.HistogramVec
}

// New registers dsq's metric family against reg and returns the
// handles. Callers pass prometheus.DefaultRegisterer in production and
// a fresh prometheus.NewRegistry() in tests, so repeated construction
// never collides.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		Processed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dsq_processed_total",
			Help: "Total number of tasks processed, by outcome and task name.",
		}, []string{"status", "task"}),

		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsq_task_duration_seconds",
			Help:    "Task handler execution duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),

		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dsq_queue_depth",
			Help: "Number of ready items currently in a queue.",
		}, []string{"queue"}),

		QueueLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dsq_queue_latency_seconds",
			Help:    "Time a task spent queued before processing started.",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
	}
}
