package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/crawlgraph/internal/config"
	"github.com/nao1215/crawlgraph/internal/database"
	"github.com/nao1215/crawlgraph/internal/ingest"
	"github.com/nao1215/crawlgraph/internal/model"
	"github.com/nao1215/crawlgraph/internal/pipeline"
	"github.com/nao1215/crawlgraph/internal/report"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url ...]",
		Short: "Crawl websites and record their link relationships",
		Long: `Crawl walks each seed site breadth first and records one crawl event per
fetched page: the page URL and the same-site links found on it.

Every seed gets its own CrawlID. Events are saved to the crawl store so the
crawl can be laid out, served or compared later. With --layout the events are
also laid out while crawling and a layout report is printed at the end.

Examples:
  # Crawl a site three links deep
  crawlgraph crawl https://example.com

  # Crawl several sites, two at a time
  crawlgraph crawl -b 2 https://a.example https://b.example

  # Read seeds from a file, one per line
  crawlgraph crawl --list seeds.txt

  # Crawl and render the layout
  crawlgraph crawl --layout --frames site.svg https://example.com

Configuration file (.crawlgraph) example:
  defaults:
    depth: 2
  sites:
    example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      ignorePatterns:
        - "/logout*"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().String("list", "", "File with one seed URL per line")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link distance from the seed")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch per seed")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause between requests to the same site")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent by the crawler")
	cmd.Flags().Bool("layout", false, "Lay out the crawled graph and print a layout report")
	cmd.Flags().StringP("frames", "f", "",
		"With --layout, render the layout to this file (.svg or .json)")
	addLayoutFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// buildCrawlConfig creates a Config from the crawl command flags.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.CrawlDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.FrameFile, err = flags.GetString("frames"); err != nil {
		return nil, err
	}

	cfg.Seeds = append(cfg.Seeds, args...)
	listFile, err := flags.GetString("list")
	if err != nil {
		return nil, err
	}
	if listFile != "" {
		seeds, err := readSeedList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Seeds = append(cfg.Seeds, seeds...)
	}

	// Crawls are always recorded; the store is what layout and compare read.
	cfg.SaveToDB = true
	return cfg, nil
}

// readSeedList reads seed URLs from path, one per line. Blank lines and
// lines starting with # are skipped.
func readSeedList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided seed list is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open seed list: %w", err)
	}
	defer f.Close()

	var seeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		seeds = append(seeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed list: %w", err)
	}
	return seeds, nil
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	withLayout, err := cmd.Flags().GetBool("layout")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	db, err := openStore(cmd, true)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("crawl store opened", slog.String("path", db.Path()))

	var in *ingest.Ingestor
	if withLayout {
		in = newIngestor(cfg, logger, nil)
	}

	crawls, err := runCrawl(ctx, cfg, db, in, cmd.OutOrStdout(), logger)
	if err != nil && len(crawls) == 0 {
		return err
	}

	if in != nil {
		in.Settle(ctx)
		if cfg.FrameFile != "" {
			if err := frameSurface(cfg.FrameFile, cmd.OutOrStdout()).Draw(in.Frame()); err != nil {
				return fmt.Errorf("failed to render frame: %w", err)
			}
		}
		if rerr := outputReport(cfg, cmd.OutOrStdout(), func(w report.Writer) error {
			_, err := w.Write(in.Report())
			return err
		}); rerr != nil {
			return rerr
		}
	}
	return err
}

// runCrawl crawls every seed of cfg through a pipeline per seed and returns
// the crawls in seed order. in, when set, receives every event as well.
func runCrawl(ctx context.Context, cfg *config.Config, db *database.CrawlDB, in *ingest.Ingestor, out io.Writer, logger *slog.Logger) ([]*model.Crawl, error) {
	var sinks []pipeline.Sink
	if in != nil {
		sinks = append(sinks, pipeline.IngestSink(in))
	}

	bp := pipeline.NewBatchProcessor(
		func(seed string) *pipeline.Pipeline {
			return pipeline.NewCrawlPipeline(db, newSpider(cfg, seed, db, logger), logger, sinks...)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	fmt.Fprintf(out, "Crawling %d seed(s) (concurrency: %d)...\n", len(cfg.Seeds), cfg.BatchSize)
	start := time.Now()

	crawls := make([]*model.Crawl, len(cfg.Seeds))
	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(c *model.Crawl, index int) {
		mu.Lock()
		defer mu.Unlock()
		crawls[index] = c

		status := "done"
		switch {
		case c.TimedOut:
			status = "interrupted"
		case c.Error != "":
			status = "failed: " + c.Error
		}
		fmt.Fprintf(out, "[%d/%d] %s  %s  pages=%d events=%d  %s\n",
			index+1, len(cfg.Seeds), c.ID, c.Seed, c.PagesCrawled, c.EventsEmitted, status)
	})

	fmt.Fprintf(out, "Crawl finished in %s\n", time.Since(start).Round(time.Millisecond))

	done := crawls[:0]
	for _, c := range crawls {
		if c != nil {
			done = append(done, c)
		}
	}
	return done, err
}
