package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIngestMetrics() {
	r.EventsIngestedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlgraph_events_ingested_total",
			Help: "Total number of crawl events merged into the graph",
		},
		[]string{"kind"},
	)

	r.EventsDroppedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "crawlgraph_events_dropped_total",
			Help: "Total number of crawl events dropped for lacking a parent URL",
		},
	)

	r.SourceErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlgraph_source_errors_total",
			Help: "Total number of event source errors",
		},
		[]string{"source"},
	)

	r.PendingEvents = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "crawlgraph_pending_events",
			Help: "Events queued for the next tick",
		},
	)
}
