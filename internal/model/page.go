package model

import "strings"

// Page is a fetched page and the links found on it.
type Page struct {
	// URL is the absolute URL that was requested.
	URL string `json:"url"`

	// ContentType is the Content-Type response header.
	ContentType string `json:"content_type"`

	// Children holds the filtered absolute link targets.
	Children []string `json:"children,omitempty"`
}

// IsHTML reports whether the page content type indicates HTML.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

// Event converts the page into the crawl event for crawlID.
func (p *Page) Event(crawlID string) CrawlEvent {
	children := make([]string, len(p.Children))
	copy(children, p.Children)
	return CrawlEvent{
		CrawlID:   crawlID,
		ParentURL: p.URL,
		ChildURLs: children,
	}
}
