package metrics

import (
	"time"
)

// Event kinds for RecordEvent.
const (
	KindStructural = "structural"
	KindRepeat     = "repeat"
)

// RecordEvent records a merged event. Dropped events are counted apart.
func (r *Registry) RecordEvent(structural, dropped bool) {
	if r == nil {
		return
	}
	if dropped {
		r.EventsDroppedTotal.Inc()
		return
	}
	kind := KindRepeat
	if structural {
		kind = KindStructural
	}
	r.EventsIngestedTotal.WithLabelValues(kind).Inc()
}

// RecordSourceError records a failure of the named event source.
func (r *Registry) RecordSourceError(source string) {
	if r == nil {
		return
	}
	r.SourceErrorsTotal.WithLabelValues(source).Inc()
}

// SetPending sets the queue length.
func (r *Registry) SetPending(n int) {
	if r == nil {
		return
	}
	r.PendingEvents.Set(float64(n))
}

// RecordTick records one tick of the layout loop.
func (r *Registry) RecordTick(reset bool, step time.Duration, alpha float64, converged bool) {
	if r == nil {
		return
	}
	r.TicksTotal.Inc()
	if reset {
		r.ResetsTotal.Inc()
	}
	r.StepDuration.Observe(step.Seconds())
	r.SimulationAlpha.Set(alpha)
	if converged {
		r.LayoutConverged.Set(1)
	} else {
		r.LayoutConverged.Set(0)
	}
}

// RecordPaint records a paint attempt.
func (r *Registry) RecordPaint(painted bool) {
	if r == nil {
		return
	}
	if painted {
		r.PaintsTotal.WithLabelValues("drawn").Inc()
	} else {
		r.PaintsTotal.WithLabelValues("skipped").Inc()
	}
}

// UpdateGraph sets the graph size gauges.
func (r *Registry) UpdateGraph(nodes, edges int) {
	if r == nil {
		return
	}
	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
}

// AddRestored adds bodies restored by the simulator.
func (r *Registry) AddRestored(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.BodiesRestored.Add(float64(n))
}

// SetViewers sets the number of connected viewers.
func (r *Registry) SetViewers(n int) {
	if r == nil {
		return
	}
	r.ViewersConnected.Set(float64(n))
}

// RecordFrame records a frame delivered to or dropped for a viewer.
func (r *Registry) RecordFrame(sent bool) {
	if r == nil {
		return
	}
	if sent {
		r.FramesSentTotal.Inc()
	} else {
		r.FramesDropped.Inc()
	}
}
