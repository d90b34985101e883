package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "crawlgraph"

	// DefaultTimeout bounds a single HTTP request made by the crawler.
	DefaultTimeout = 30 * time.Second

	// DefaultCrawlDepth is how many links away from the seed the crawler
	// goes. Depth 0 fetches only the seed.
	DefaultCrawlDepth = 3

	// DefaultMaxPages is the maximum number of pages fetched per seed.
	DefaultMaxPages = 200

	// DefaultBatchSize is the number of seeds crawled concurrently.
	DefaultBatchSize = 4

	// DefaultCrawlDelay is the pause between two requests to the same site.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "crawlgraph/1.0 (+https://github.com/nao1215/crawlgraph)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTickInterval is the live layout refresh period (60 Hz).
	DefaultTickInterval = time.Second / 60

	// DefaultListenAddress is where the live viewer listens.
	DefaultListenAddress = "127.0.0.1:8080"
)

// Config holds all configuration options for crawlgraph.
// It is populated from CLI flags and the optional config file and passed
// through the application explicitly.
type Config struct {
	// Verbose enables debug logging.
	Verbose bool

	// Timeout is the per-request timeout of the crawler.
	Timeout time.Duration

	// CrawlDepth is the maximum link distance from a seed.
	CrawlDepth int

	// MaxPages is the maximum number of pages fetched per seed.
	MaxPages int

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// CrawlDelay is the pause between requests.
	CrawlDelay time.Duration

	// UserAgent is sent with every crawler request.
	UserAgent string

	// MaxBodySize is the maximum number of bytes read per response.
	MaxBodySize int64

	// Seeds are the start URLs for the crawl command.
	Seeds []string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .crawlgraph is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file, if any.
	SiteConfigs *File

	// JSONReport selects the JSON layout report.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown layout report.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is where the report is written. Empty means stdout.
	ReportFile string

	// FrameFile receives the rendered layout (SVG or JSON by extension).
	// Empty disables frame output.
	FrameFile string

	// DBDir is the directory of the crawl store.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB records crawled events in the crawl store.
	SaveToDB bool

	// TickInterval is the period of the live layout loop.
	TickInterval time.Duration

	// ListenAddress is the address of the live viewer.
	ListenAddress string

	// Layout holds the physical constants of the force layout.
	Layout Layout
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		CrawlDepth:    DefaultCrawlDepth,
		MaxPages:      DefaultMaxPages,
		BatchSize:     DefaultBatchSize,
		CrawlDelay:    DefaultCrawlDelay,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		TickInterval:  DefaultTickInterval,
		ListenAddress: DefaultListenAddress,
		Layout:        DefaultLayout(),
	}
}

// ApplyFile merges a loaded configuration file into c. The layout block
// overrides individual layout constants; site settings stay in the file
// and are looked up per host while crawling.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.SiteConfigs = f
	c.Layout = c.Layout.Merge(f.Layout)
}

// XDGDataDir returns the XDG data directory for crawlgraph.
// On Linux: ~/.local/share/crawlgraph
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for crawlgraph.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}
	if c.TickInterval <= 0 {
		return ErrInvalidTickInterval
	}
	return c.Layout.Validate()
}

// ValidateCrawl checks the configuration for commands that crawl.
func (c *Config) ValidateCrawl() error {
	if len(c.Seeds) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}
