// Package pipeline runs crawls as a sequence of steps.
//
// A crawl of one seed goes through three steps: RegisterStep records the
// crawl in the store, CrawlStep walks the site and fans every CrawlEvent out
// to the configured sinks (the store's relationship log, a live ingestor),
// and FinishStep stores the final crawl summary. FinishStep is a final step:
// it still runs when an earlier step failed or the context was cancelled, so
// an interrupted crawl is recorded as such.
//
// BatchProcessor crawls several seeds concurrently with errgroup, each with
// a fresh pipeline and its own crawl id.
package pipeline
