package model

import "time"

// NodePosition is the settled position of one page in a layout.
type NodePosition struct {
	// URL identifies the node.
	URL string `json:"id"`

	// X and Y are canvas coordinates.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// Degree counts edges touching the node, duplicates included.
	Degree int `json:"degree"`
}

// LinkSummary is one distinct link in a layout with its repeat count.
type LinkSummary struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// LayoutReport is the result of running a layout over a set of crawl events.
type LayoutReport struct {
	// CrawlID is set when all events came from one crawl.
	CrawlID string `json:"crawl_id,omitempty"`

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Width and Height are the canvas size used for the layout.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Events counts the crawl events merged into the graph.
	Events int `json:"events"`

	// EdgeCount counts every edge, including duplicates.
	EdgeCount int `json:"edge_count"`

	// Steps is the number of simulation steps taken since the last reset.
	Steps int `json:"steps"`

	// Alpha is the simulation temperature when the report was taken.
	Alpha float64 `json:"alpha"`

	// Converged is true when alpha fell below the stop threshold.
	Converged bool `json:"converged"`

	// Nodes lists every node in insertion order.
	Nodes []NodePosition `json:"nodes"`

	// Links lists distinct links in first-seen order.
	Links []LinkSummary `json:"links"`
}

// NodeCount returns the number of nodes in the report.
func (r *LayoutReport) NodeCount() int {
	return len(r.Nodes)
}

// DuplicateEdges returns how many edges repeat an earlier source/target pair.
func (r *LayoutReport) DuplicateEdges() int {
	return r.EdgeCount - len(r.Links)
}
