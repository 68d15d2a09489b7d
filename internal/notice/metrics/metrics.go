// Package metrics holds the read API counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ListRequests prometheus.Counter
	RecordViews  prometheus.Counter
	AlarmsServed prometheus.Counter
	AdminEdits   prometheus.Counter
	AdminDeletes prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ListRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_api_list_requests_total",
			Help: "Number of notice list requests served.",
		}),
		RecordViews: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_api_record_views_total",
			Help: "Number of single notice views served.",
		}),
		AlarmsServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_api_alarms_served_total",
			Help: "Number of notices served with an active alarm flag.",
		}),
		AdminEdits: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_api_admin_edits_total",
			Help: "Number of successful admin edits.",
		}),
		AdminDeletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "redwatch_api_admin_deletes_total",
			Help: "Number of successful admin deletes.",
		}),
	}
}
