package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the producer process.
type Metrics struct {
	PagesPublished  prometheus.Counter
	EmptyPartitions prometheus.Counter
	PartitionErrors prometheus.Counter
	RateLimitHits   prometheus.Counter
	CycleDuration   prometheus.Histogram
}

// New creates and registers all producer metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in main; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_producer_pages_published_total",
			Help: "Total non-empty partition pages published to the work queue",
		}),
		EmptyPartitions: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_producer_empty_partitions_total",
			Help: "Total partition scans that returned zero notices",
		}),
		PartitionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_producer_partition_errors_total",
			Help: "Total partition scans that failed and were skipped",
		}),
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_producer_rate_limit_hits_total",
			Help: "Total 429 responses from the notice source",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "redwatch_producer_cycle_duration_seconds",
			Help:    "Duration of one full partition scan cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}
