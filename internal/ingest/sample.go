package ingest

import "github.com/nao1215/crawlgraph/internal/model"

// SampleCrawlID tags the events returned by SampleEvents.
const SampleCrawlID = "00000000-0000-4000-8000-000000000001"

// SampleEvents returns a small six-page crawl of example.com. It contains a
// repeated link and a self link.
func SampleEvents() []model.CrawlEvent {
	const (
		site       = "https://example.com"
		home       = site + "/"
		ingest     = site + "/cloudformation-dynamodb-data-ingest/"
		relational = site + "/relational-data-in-dynamodb/"
		acceptance = site + "/serverless-acceptance-test-environments-jest/"
		gitClone   = site + "/docker-git-clone/"
	)
	ev := func(parent string, children ...string) model.CrawlEvent {
		return model.CrawlEvent{CrawlID: SampleCrawlID, ParentURL: parent, ChildURLs: children}
	}
	return []model.CrawlEvent{
		ev(site, home, ingest, relational, acceptance, gitClone),
		ev(ingest, home, relational, relational),
		ev(acceptance, home, gitClone, relational),
		ev(gitClone, home, acceptance),
		ev(relational, home, acceptance, ingest),
		ev(home, home, ingest, relational, acceptance, gitClone),
	}
}
