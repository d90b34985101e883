package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// CrawlEvent describes a page (ParentURL) and the pages it links to (ChildURLs).
// The JSON field names match the wire format of the crawl event stream.
//
// A CrawlEvent is immutable once received. Consumers must not modify
// ChildURLs in place; use Clone when a private copy is needed.
type CrawlEvent struct {
	// CrawlID correlates events belonging to the same crawl run.
	CrawlID string `json:"CrawlID"`

	// ParentURL is the page the links were found on.
	ParentURL string `json:"ParentURL"`

	// ChildURLs are the link targets in document order. Duplicates are kept.
	ChildURLs []string `json:"ChildURLs"`
}

// NewCrawlID returns a fresh random crawl identifier.
func NewCrawlID() string {
	return uuid.New().String()
}

// IsValidCrawlID reports whether id parses as a UUID.
func IsValidCrawlID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// HasParent reports whether the event names a parent page.
// Events without a parent carry no graph information.
func (e CrawlEvent) HasParent() bool {
	return strings.TrimSpace(e.ParentURL) != ""
}

// Clone returns a deep copy of the event.
func (e CrawlEvent) Clone() CrawlEvent {
	c := e
	if e.ChildURLs != nil {
		c.ChildURLs = make([]string, len(e.ChildURLs))
		copy(c.ChildURLs, e.ChildURLs)
	}
	return c
}

// UnmarshalJSON decodes a crawl event leniently.
// A ChildURLs value that is missing, null or not an array decodes as an
// empty list, and non-string entries are skipped.
func (e *CrawlEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		CrawlID   string          `json:"CrawlID"`
		ParentURL string          `json:"ParentURL"`
		ChildURLs json.RawMessage `json:"ChildURLs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	e.CrawlID = raw.CrawlID
	e.ParentURL = raw.ParentURL
	e.ChildURLs = nil

	var items []json.RawMessage
	if len(raw.ChildURLs) == 0 || json.Unmarshal(raw.ChildURLs, &items) != nil {
		return nil
	}

	e.ChildURLs = make([]string, 0, len(items))
	for _, item := range items {
		if string(bytes.TrimSpace(item)) == "null" {
			continue
		}
		var s string
		if json.Unmarshal(item, &s) == nil {
			e.ChildURLs = append(e.ChildURLs, s)
		}
	}
	return nil
}
