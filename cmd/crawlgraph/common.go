package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/crawlgraph/internal/config"
	"github.com/nao1215/crawlgraph/internal/crawler"
	"github.com/nao1215/crawlgraph/internal/database"
	"github.com/nao1215/crawlgraph/internal/force"
	"github.com/nao1215/crawlgraph/internal/ingest"
	"github.com/nao1215/crawlgraph/internal/log"
	"github.com/nao1215/crawlgraph/internal/metrics"
	"github.com/nao1215/crawlgraph/internal/render"
	"github.com/nao1215/crawlgraph/internal/report"
)

// errNoSource is returned when a layout has nothing to read events from.
var errNoSource = errors.New("no event source: give event files, --sample, --crawl-id or --ws")

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates the secure structured logger for a command and makes
// it the default.
func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose := getVerboseFlag(cmd)
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs = false
	}

	var logger *slog.Logger
	if jsonLogs {
		logger = log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	} else {
		logger = log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// dbDir returns the crawl store directory from --db-dir or XDG.
func dbDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil || dir == "" {
		return config.XDGDataDir()
	}
	return dir
}

// openStore opens the crawl store. With create false a missing store is
// reported as database.ErrDatabaseNotFound.
func openStore(cmd *cobra.Command, create bool) (*database.CrawlDB, error) {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = create
	db, err := database.Open(dbDir(cmd), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open crawl store: %w", err)
	}
	return db, nil
}

// addLayoutFlags registers flags shared by the commands that lay out a
// graph.
func addLayoutFlags(cmd *cobra.Command) {
	def := config.DefaultLayout()
	cmd.Flags().Float64("width", def.Width, "Canvas width")
	cmd.Flags().Float64("height", def.Height, "Canvas height")
	cmd.Flags().Int("max-steps", def.MaxSteps, "Maximum simulation steps after a structural change")
	cmd.Flags().Uint32("layout-seed", def.Seed, "Seed of the jiggle generator")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .crawlgraph in current or home directory)")
}

// addReportFlags registers the report format flags.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// loadConfig builds a Config from the config file and the flags of cmd.
// Flags given on the command line win over the file's layout block.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.DBDir = dbDir(cmd)

	flags := cmd.Flags()
	if f := flags.Lookup("config"); f != nil {
		cfg.ConfigFilePath = f.Value.String()
	}
	if err := config.LoadInto(cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var err error
	if flags.Lookup("json") != nil {
		if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
			return nil, err
		}
		if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
			return nil, err
		}
		if cfg.ReportFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}

	if flags.Lookup("width") != nil {
		if flags.Changed("width") {
			cfg.Layout.Width, _ = flags.GetFloat64("width")
		}
		if flags.Changed("height") {
			cfg.Layout.Height, _ = flags.GetFloat64("height")
		}
		if flags.Changed("max-steps") {
			cfg.Layout.MaxSteps, _ = flags.GetInt("max-steps")
		}
		if flags.Changed("layout-seed") {
			cfg.Layout.Seed, _ = flags.GetUint32("layout-seed")
		}
	}
	return cfg, nil
}

// layoutParams converts the configured layout constants to simulator
// parameters.
func layoutParams(l config.Layout) force.Params {
	p := force.DefaultParams()
	p.Width = l.Width
	p.Height = l.Height
	p.AlphaDecay = l.AlphaDecay
	p.AlphaMin = l.AlphaMin
	p.VelocityDecay = l.VelocityDecay
	p.ChargeStrength = l.ChargeStrength
	p.LinkDistance = l.LinkDistance
	p.NodeRadius = l.NodeRadius
	p.Theta = l.Theta
	p.MaxSpeed = l.MaxSpeed
	p.BarnesHutThreshold = l.BarnesHutThreshold
	p.MaxSteps = l.MaxSteps
	return p
}

// newIngestor creates the live layout for cfg. reg may be nil.
func newIngestor(cfg *config.Config, logger *slog.Logger, reg *metrics.Registry) *ingest.Ingestor {
	style := render.DefaultStyle()
	style.NodeRadius = cfg.Layout.NodeRadius
	return ingest.New(
		ingest.WithLogger(logger),
		ingest.WithMetrics(reg),
		ingest.WithInterval(cfg.TickInterval),
		ingest.WithSimulatorOptions(
			force.WithParams(layoutParams(cfg.Layout)),
			force.WithSeed(cfg.Layout.Seed),
		),
		ingest.WithBinderOptions(render.WithStyle(style)),
	)
}

// frameSurface returns the surface for --frames. "-" streams JSON Lines to
// out; a path ending in .json or .jsonl gets JSON, anything else SVG.
func frameSurface(path string, out io.Writer) render.Surface {
	if path == "-" {
		return render.NewStreamSurface(out, render.EncodeJSON)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl":
		return render.NewFileSurface(path, render.EncodeJSON)
	default:
		return render.NewFileSurface(path, render.EncodeSVG)
	}
}

// newReportWriter selects the report writer for cfg.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
}

// outputReport writes a report to cfg.ReportFile, or to stdout when no
// file is set. write receives the selected writer.
func outputReport(cfg *config.Config, stdout io.Writer, write func(report.Writer) error) error {
	output := stdout
	if cfg.ReportFile != "" {
		// Create directories if they don't exist
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list every crawled URL, so keep them owner-readable only
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}
	return write(newReportWriter(cfg, output))
}

// newSpider creates a crawler for seed with the settings of its host.
func newSpider(cfg *config.Config, seed string, checker crawler.ParentChecker, logger *slog.Logger) *crawler.Spider {
	var site config.SiteConfig
	if cfg.SiteConfigs != nil {
		site = cfg.SiteConfigs.GetSiteConfig(seedHost(seed))
	}

	depth := cfg.CrawlDepth
	if site.Depth > 0 {
		depth = site.Depth
	}

	opts := []crawler.SpiderOption{
		crawler.WithMaxDepth(depth),
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithDelay(cfg.CrawlDelay),
		crawler.WithSpiderUserAgent(cfg.UserAgent),
		crawler.WithSpiderMaxBodySize(cfg.MaxBodySize),
		crawler.WithSpiderLogger(logger),
	}
	if site.Cookie != "" {
		opts = append(opts, crawler.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		opts = append(opts, crawler.WithHeaders(site.Headers))
	}
	if len(site.IgnorePatterns) > 0 {
		opts = append(opts, crawler.WithIgnorePatterns(site.IgnorePatterns))
	}
	if len(site.FollowPatterns) > 0 {
		opts = append(opts, crawler.WithFollowPatterns(site.FollowPatterns))
	}
	if checker != nil {
		opts = append(opts, crawler.WithParentChecker(checker))
	}
	return crawler.NewSpider(&http.Client{Timeout: cfg.Timeout}, opts...)
}

// seedHost returns the host of seed, accepting seeds without a scheme.
func seedHost(seed string) string {
	if !strings.Contains(seed, "://") {
		seed = "https://" + seed
	}
	u, err := url.Parse(seed)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
