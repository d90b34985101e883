// Package report writes layout results and crawl comparisons.
//
// Three writers implement Writer:
//   - SimpleWriter: terminal text with coloured headings
//   - JSONWriter: the layout as d3-style nodes and links, for tools
//   - MarkdownWriter: tables plus a mermaid flowchart of the graph
//
// Report data lives in the model package; this package only formats it.
package report
