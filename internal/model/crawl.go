package model

import "time"

// Crawl holds metadata about one crawl run rooted at a seed URL.
// The relationships themselves are stored separately as CrawlEvents.
type Crawl struct {
	// ID is the CrawlID shared by every event of the run.
	ID string `json:"id"`

	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// StartedAt is when the crawl was registered.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is zero while the crawl is still running.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// PagesCrawled counts pages fetched successfully.
	PagesCrawled int `json:"pages_crawled"`

	// EventsEmitted counts link relationships produced.
	EventsEmitted int `json:"events_emitted"`

	// TimedOut is set when the crawl was cancelled before finishing.
	TimedOut bool `json:"timed_out,omitempty"`

	// Error holds the error message of the last failed step.
	Error string `json:"error,omitempty"`

	// PerformedSteps lists the pipeline steps run for this crawl.
	PerformedSteps []string `json:"performed_steps,omitempty"`
}

// NewCrawl creates a crawl for seed with a fresh CrawlID.
func NewCrawl(seed string) *Crawl {
	return &Crawl{
		ID:             NewCrawlID(),
		Seed:           seed,
		StartedAt:      time.Now(),
		PerformedSteps: make([]string, 0),
	}
}

// Finished reports whether the crawl has completed.
func (c *Crawl) Finished() bool {
	return !c.FinishedAt.IsZero()
}

// Duration returns how long the crawl ran, or has been running so far.
func (c *Crawl) Duration() time.Duration {
	if c.Finished() {
		return c.FinishedAt.Sub(c.StartedAt)
	}
	return time.Since(c.StartedAt)
}
