package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/crawlgraph/internal/config"
	"github.com/nao1215/crawlgraph/internal/ingest"
	"github.com/nao1215/crawlgraph/internal/metrics"
	"github.com/nao1215/crawlgraph/internal/model"
	"github.com/nao1215/crawlgraph/internal/pipeline"
	"github.com/nao1215/crawlgraph/internal/viewer"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [event-file ...]",
		Short: "Serve a live view of the layout in the browser",
		Long: `Serve lays out crawl events continuously and shows the layout in a browser.

The simulation only ticks while a browser tab is looking at it: the first
viewer mounts the layout and the last one leaving unmounts it. Events come
from the same sources as the layout command, from live crawls started with
--crawl, or from POST /api/events.

Endpoints:
  /             live SVG view
  /ws           websocket frame stream
  /events       websocket crawl event feed (subscribe with a CrawlID)
  /api/frame    current frame as JSON
  /api/report   current layout report as JSON
  /api/events   POST one event or an array of events
  /metrics      Prometheus metrics

Examples:
  # Watch the built-in sample settle
  crawlgraph serve --sample

  # Crawl a site and watch its graph grow
  crawlgraph serve --crawl https://example.com

  # Replay a stored crawl on another port
  crawlgraph serve --addr :9000 --crawl-id 3f1c...`,
		Args: cobra.ArbitraryArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", config.DefaultListenAddress, "Listen address")
	cmd.Flags().Duration("tick", config.DefaultTickInterval, "Tick interval of the live layout")
	cmd.Flags().Bool("sample", false, "Load the built-in six page sample crawl")
	cmd.Flags().StringSlice("crawl-id", nil, "Replay a crawl from the crawl store (repeatable)")
	cmd.Flags().String("ws", "", "Websocket endpoint publishing crawl events")
	cmd.Flags().String("subscribe", "", "CrawlID to subscribe to on --ws")
	cmd.Flags().StringSlice("crawl", nil, "Crawl this seed URL live (repeatable)")
	addLayoutFlags(cmd)

	return cmd
}

func runServeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if cfg.ListenAddress, err = flags.GetString("addr"); err != nil {
		return err
	}
	if cfg.TickInterval, err = flags.GetDuration("tick"); err != nil {
		return err
	}
	if cfg.Seeds, err = flags.GetStringSlice("crawl"); err != nil {
		return err
	}
	opts := layoutOptions{files: args}
	if opts.sample, err = flags.GetBool("sample"); err != nil {
		return err
	}
	if opts.crawlIDs, err = flags.GetStringSlice("crawl-id"); err != nil {
		return err
	}
	if opts.wsURL, err = flags.GetString("ws"); err != nil {
		return err
	}
	if opts.subscribe, err = flags.GetString("subscribe"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	var sources []ingest.Source
	if len(args) > 0 || opts.sample || len(opts.crawlIDs) > 0 || opts.wsURL != "" {
		var closeSources func()
		sources, closeSources, err = openSources(cmd, opts, logger)
		if err != nil {
			return err
		}
		defer closeSources()
	}

	reg := metrics.NewRegistry()
	in := newIngestor(cfg, logger, reg)
	feed := viewer.NewFeed(logger)
	srv := viewer.NewServer(in,
		viewer.WithLogger(logger),
		viewer.WithMetrics(reg),
		viewer.WithFeed(feed),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Serving live layout on http://%s/\n", cfg.ListenAddress)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.ListenAddress)
	})
	for _, src := range sources {
		g.Go(func() error {
			// A failing source must not take the viewer down.
			if err := in.Consume(gctx, src); err != nil && gctx.Err() == nil {
				logger.Error("event source stopped", slog.String("source", src.Name()), slog.String("error", err.Error()))
			}
			return nil
		})
	}
	if len(cfg.Seeds) > 0 {
		g.Go(func() error {
			return serveCrawls(gctx, cmd, cfg, in, feed, logger)
		})
	}
	return g.Wait()
}

// serveCrawls crawls cfg.Seeds into the store, the live layout and the
// event feed.
func serveCrawls(ctx context.Context, cmd *cobra.Command, cfg *config.Config, in *ingest.Ingestor, feed *viewer.Feed, logger *slog.Logger) error {
	db, err := openStore(cmd, true)
	if err != nil {
		logger.Error("live crawl disabled", slog.String("error", err.Error()))
		return nil
	}
	defer db.Close()

	bp := pipeline.NewBatchProcessor(
		func(seed string) *pipeline.Pipeline {
			return pipeline.NewCrawlPipeline(db, newSpider(cfg, seed, db, logger), logger,
				pipeline.IngestSink(in), feed.Publish)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	err = bp.ProcessBatchWithCallback(ctx, cfg.Seeds, func(c *model.Crawl, _ int) {
		logger.Info("live crawl finished",
			slog.String("crawl_id", c.ID),
			slog.String("seed", c.Seed),
			slog.Int("pages", c.PagesCrawled))
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
