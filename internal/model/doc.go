// Package model defines the data structures shared across crawlgraph.
//
// This package contains the following main types:
//   - CrawlEvent: one page and the pages it links to, as emitted by a crawler
//   - Crawl: metadata about a single crawl run identified by a CrawlID
//   - Page: a fetched page with the links extracted from it
//   - LayoutReport: the positions produced by a layout run, used by report writers
//
// Models live in their own package so that crawler, database, ingest and
// report can share them without import cycles. All of them serialise to JSON.
package model
