package model

import (
	"cmp"
	"slices"
	"strings"
)

// CrawlDiff describes how the link structure of Target differs from Base.
type CrawlDiff struct {
	Base   *Crawl `json:"base"`
	Target *Crawl `json:"target"`

	// AddedPages and RemovedPages are sorted page URLs present in only one crawl.
	AddedPages   []string `json:"added_pages"`
	RemovedPages []string `json:"removed_pages"`

	// AddedLinks and RemovedLinks are distinct links present in only one
	// crawl, sorted by source then target. Count is the repeat count in
	// the crawl that has the link.
	AddedLinks   []LinkSummary `json:"added_links"`
	RemovedLinks []LinkSummary `json:"removed_links"`

	CommonPages int `json:"common_pages"`
	CommonLinks int `json:"common_links"`
}

// Changed reports whether the crawls differ in pages or links.
func (d *CrawlDiff) Changed() bool {
	return len(d.AddedPages)+len(d.RemovedPages)+len(d.AddedLinks)+len(d.RemovedLinks) > 0
}

type linkKey struct{ source, target string }

// structure collects the pages and distinct link counts of a crawl's events.
// Events without a parent contribute nothing.
func structure(events []CrawlEvent) (map[string]bool, map[linkKey]int) {
	pages := make(map[string]bool)
	links := make(map[linkKey]int)
	for _, ev := range events {
		if !ev.HasParent() {
			continue
		}
		pages[ev.ParentURL] = true
		for _, child := range ev.ChildURLs {
			if child == "" {
				continue
			}
			pages[child] = true
			links[linkKey{ev.ParentURL, child}]++
		}
	}
	return pages, links
}

// NewCrawlDiff compares the events of two crawls.
func NewCrawlDiff(base, target *Crawl, baseEvents, targetEvents []CrawlEvent) *CrawlDiff {
	basePages, baseLinks := structure(baseEvents)
	targetPages, targetLinks := structure(targetEvents)

	d := &CrawlDiff{
		Base:         base,
		Target:       target,
		AddedPages:   make([]string, 0),
		RemovedPages: make([]string, 0),
		AddedLinks:   make([]LinkSummary, 0),
		RemovedLinks: make([]LinkSummary, 0),
	}

	for p := range targetPages {
		if basePages[p] {
			d.CommonPages++
		} else {
			d.AddedPages = append(d.AddedPages, p)
		}
	}
	for p := range basePages {
		if !targetPages[p] {
			d.RemovedPages = append(d.RemovedPages, p)
		}
	}
	for k, n := range targetLinks {
		if _, ok := baseLinks[k]; ok {
			d.CommonLinks++
		} else {
			d.AddedLinks = append(d.AddedLinks, LinkSummary{Source: k.source, Target: k.target, Count: n})
		}
	}
	for k, n := range baseLinks {
		if _, ok := targetLinks[k]; !ok {
			d.RemovedLinks = append(d.RemovedLinks, LinkSummary{Source: k.source, Target: k.target, Count: n})
		}
	}

	slices.Sort(d.AddedPages)
	slices.Sort(d.RemovedPages)
	sortLinks(d.AddedLinks)
	sortLinks(d.RemovedLinks)
	return d
}

func sortLinks(links []LinkSummary) {
	slices.SortFunc(links, func(a, b LinkSummary) int {
		return cmp.Or(strings.Compare(a.Source, b.Source), strings.Compare(a.Target, b.Target))
	})
}
