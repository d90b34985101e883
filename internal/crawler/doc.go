// Package crawler walks a website and reports its link structure.
//
// Spider fetches pages breadth-first from a seed URL. For every HTML page
// it extracts the anchors, keeps those on the seed's host that pass the
// configured ignore and follow patterns, resolves them to absolute URLs
// without fragments and emits one model.CrawlEvent. Children are scheduled
// until the maximum depth; pages already visited in this crawl, or already
// recorded in the crawl store for the same crawl id, are not fetched again.
//
// The Spider is polite by default: one request at a time with a delay
// between requests, a page limit, and a cap on body size.
//
//	spider := crawler.NewSpider(http.DefaultClient, crawler.WithMaxDepth(2))
//	crawl, err := spider.Crawl(ctx, "https://example.com", crawlID, emit)
package crawler
