// Package database is the SQLite crawl store.
//
// A CrawlDB keeps two tables: crawls, one row of metadata per crawl id, and
// link_relationships, the append-only log of parent/child pairs each crawl
// produced. The log is the event source's history, not layout state: Events
// replays it as model.CrawlEvents in the order they were saved, so a stored
// crawl can be fed to the ingestor exactly as it was streamed live.
//
// The store uses modernc.org/sqlite, a CGO-free driver, with a single open
// connection and WAL journaling.
package database
