package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Ingest metrics
	EventsIngestedTotal *prometheus.CounterVec
	EventsDroppedTotal  prometheus.Counter
	SourceErrorsTotal   *prometheus.CounterVec
	PendingEvents       prometheus.Gauge

	// Layout metrics
	TicksTotal      prometheus.Counter
	ResetsTotal     prometheus.Counter
	PaintsTotal     *prometheus.CounterVec
	StepDuration    prometheus.Histogram
	SimulationAlpha prometheus.Gauge
	GraphNodesTotal prometheus.Gauge
	GraphEdgesTotal prometheus.Gauge
	BodiesRestored  prometheus.Counter
	LayoutConverged prometheus.Gauge

	// Viewer metrics
	ViewersConnected prometheus.Gauge
	FramesSentTotal  prometheus.Counter
	FramesDropped    prometheus.Counter

	registry *prometheus.Registry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initIngestMetrics()
	r.initLayoutMetrics()
	r.initViewerMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
