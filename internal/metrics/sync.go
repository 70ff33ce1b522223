package metrics

import "github.com/prometheus/client_golang/prometheus"

// Synchronization Prometheus metrics.
var (
	ActionsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syndex",
			Name:      "bulk_actions_total",
			Help:      "Total number of bulk actions generated",
		},
		[]string{"op"},
	)

	BulkChunksFlushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "syndex",
			Name:      "bulk_chunks_total",
			Help:      "Total number of bulk chunks dispatched",
		},
	)

	BulkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "syndex",
			Name:      "bulk_request_duration_seconds",
			Help:      "Bulk request duration per cluster in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"cluster"},
	)

	ClusterErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syndex",
			Name:      "cluster_errors_total",
			Help:      "Total number of failed cluster dispatches",
		},
		[]string{"cluster"},
	)

	EventsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "syndex",
			Name:      "events_consumed_total",
			Help:      "Total number of change events consumed from the stream",
		},
		[]string{"model", "status"},
	)
)

func init() {
	prometheus.MustRegister(ActionsGenerated)
	prometheus.MustRegister(BulkChunksFlushed)
	prometheus.MustRegister(BulkDuration)
	prometheus.MustRegister(ClusterErrors)
	prometheus.MustRegister(EventsConsumed)
}
