// Package main provides the entry point for the crawlgraph CLI.
//
// crawlgraph crawls websites into a stream of link relationships and lays
// the resulting graph out with a force-directed simulation.
//
// Usage:
//
//	crawlgraph crawl <seed-url>
//	crawlgraph layout --crawl-id <id> --frames graph.svg
//	crawlgraph serve --sample
//
// See --help for all available options.
package main

// main is the entry point for crawlgraph.
func main() {
	Execute()
}
