// Package graph maintains the node-link model built from crawl events.
//
// The model is append-only: a node is created the first time its URL is seen
// as a parent or a child and is never removed, and every parent to child
// occurrence appends an edge, so a link seen twice is stored twice. Snapshots
// list nodes and edges in insertion order, which lets the force simulator
// match nodes across incremental updates by position.
//
// A Model is not safe for concurrent use. The ingest package owns one and
// mutates it from its tick loop only.
package graph
