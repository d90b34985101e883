package ingest

import "errors"

var (
	// ErrMalformedEvent is returned by sources for a message that could not
	// be decoded. The source stays usable and the message is skipped.
	ErrMalformedEvent = errors.New("malformed crawl event")

	// ErrNotMounted is returned when unmounting an ingestor that has no
	// running loop.
	ErrNotMounted = errors.New("ingestor is not mounted")

	// ErrSourceClosed is returned by sources used after Close.
	ErrSourceClosed = errors.New("source is closed")
)
