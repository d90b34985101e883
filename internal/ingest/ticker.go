package ingest

import "time"

// Ticker drives the tick loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates the ticker for a mount.
type TickerFactory func() Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker returns a Ticker firing every d.
func NewTimeTicker(d time.Duration) Ticker {
	return &timeTicker{t: time.NewTicker(d)}
}

func (t *timeTicker) C() <-chan time.Time { return t.t.C }
func (t *timeTicker) Stop()               { t.t.Stop() }

// ManualTicker fires only when told to. It is meant for tests and for
// hosts that drive ticks from their own schedule.
type ManualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
}

// NewManualTicker creates a ManualTicker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
}

// C returns the tick channel.
func (m *ManualTicker) C() <-chan time.Time { return m.ch }

// Stop marks the ticker stopped. Later fires are no-ops.
func (m *ManualTicker) Stop() {
	select {
	case <-m.stopped:
	default:
		close(m.stopped)
	}
}

// Fire delivers one tick and waits until the loop has taken it. It returns
// false when the ticker is stopped or nobody receives within a second.
func (m *ManualTicker) Fire() bool {
	select {
	case <-m.stopped:
		return false
	default:
	}
	select {
	case m.ch <- time.Now():
		return true
	case <-m.stopped:
		return false
	case <-time.After(time.Second):
		return false
	}
}
