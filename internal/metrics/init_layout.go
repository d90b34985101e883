package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLayoutMetrics() {
	r.TicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "crawlgraph_ticks_total",
			Help: "Total number of layout ticks",
		},
	)

	r.ResetsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "crawlgraph_simulation_resets_total",
			Help: "Total number of simulation resets caused by structural changes",
		},
	)

	r.PaintsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawlgraph_paints_total",
			Help: "Total number of paint attempts by outcome",
		},
		[]string{"outcome"},
	)

	r.StepDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "crawlgraph_step_duration_seconds",
			Help:    "Duration of a single simulation step",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
	)

	r.SimulationAlpha = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "crawlgraph_simulation_alpha",
			Help: "Current simulation temperature",
		},
	)

	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "crawlgraph_graph_nodes",
			Help: "Number of nodes in the graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "crawlgraph_graph_edges",
			Help: "Number of edges in the graph, duplicates included",
		},
	)

	r.BodiesRestored = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "crawlgraph_bodies_restored_total",
			Help: "Total number of bodies restored after diverging",
		},
	)

	r.LayoutConverged = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "crawlgraph_layout_converged",
			Help: "1 when the simulation has converged",
		},
	)
}
