package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initViewerMetrics() {
	r.ViewersConnected = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "crawlgraph_viewers_connected",
			Help: "Number of connected live viewers",
		},
	)

	r.FramesSentTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "crawlgraph_frames_sent_total",
			Help: "Total number of frames delivered to viewers",
		},
	)

	r.FramesDropped = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "crawlgraph_frames_dropped_total",
			Help: "Total number of frames dropped for slow viewers",
		},
	)
}
