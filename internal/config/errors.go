package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// Layout.Validate. Callers match them with errors.Is.
var (
	// ErrNoTarget is returned when a crawl is requested without seed URLs.
	ErrNoTarget = errors.New("no target specified: provide a seed URL or use --list")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidCrawlDepth is returned when the crawl depth is negative.
	ErrInvalidCrawlDepth = errors.New("invalid crawl depth: must be non-negative")

	// ErrInvalidTickInterval is returned when the tick interval is not positive.
	ErrInvalidTickInterval = errors.New("invalid tick interval: must be positive")

	// ErrInvalidCanvas is returned when the canvas width or height is not positive.
	ErrInvalidCanvas = errors.New("invalid canvas: width and height must be positive")

	// ErrInvalidAlphaDecay is returned when alpha decay is outside (0, 1).
	ErrInvalidAlphaDecay = errors.New("invalid alpha decay: must be between 0 and 1")

	// ErrInvalidAlphaMin is returned when the convergence threshold is outside (0, 1).
	ErrInvalidAlphaMin = errors.New("invalid alpha min: must be between 0 and 1")

	// ErrInvalidVelocityDecay is returned when velocity decay is outside [0, 1].
	ErrInvalidVelocityDecay = errors.New("invalid velocity decay: must be between 0 and 1")

	// ErrInvalidMaxSteps is returned when the step bound is not positive.
	ErrInvalidMaxSteps = errors.New("invalid max steps: must be positive")

	// ErrInvalidLayout is returned for negative distances, radii or thresholds.
	ErrInvalidLayout = errors.New("invalid layout: distances, radii and thresholds must be non-negative")
)
