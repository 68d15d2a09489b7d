package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the ingestion consumer.
type Metrics struct {
	PagesConsumed    prometheus.Counter
	NoticesProcessed *prometheus.CounterVec // outcome: created|updated|unchanged
	NoticeErrors     prometheus.Counter
	DetailsFetched   prometheus.Counter
	EnrichFailures   prometheus.Counter
	PhotosUploaded   prometheus.Counter
}

// New creates and registers all consumer metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in main; tests use a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_consumer_pages_consumed_total",
			Help: "Total page messages pulled from the work queue",
		}),
		NoticesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "redwatch_consumer_notices_processed_total",
			Help: "Total notices reconciled against the store, by outcome",
		}, []string{"outcome"}),
		NoticeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_consumer_notice_errors_total",
			Help: "Total notices skipped because reconciliation failed",
		}),
		DetailsFetched: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_consumer_details_fetched_total",
			Help: "Total detail documents fetched and saved",
		}),
		EnrichFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_consumer_enrich_failures_total",
			Help: "Total enrichment attempts that gave up on detail or images",
		}),
		PhotosUploaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_consumer_photos_uploaded_total",
			Help: "Total gallery images uploaded to blob storage",
		}),
	}
}
