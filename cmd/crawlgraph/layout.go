package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/crawlgraph/internal/config"
	"github.com/nao1215/crawlgraph/internal/ingest"
	"github.com/nao1215/crawlgraph/internal/render"
	"github.com/nao1215/crawlgraph/internal/report"
)

// NewLayoutCmd creates the layout command.
func NewLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout [event-file ...]",
		Short: "Lay out the link graph of crawl events",
		Long: `Layout merges crawl events into a graph and runs the force-directed
simulation until it converges or reaches --max-steps.

Events are read from JSON files (an array or one event per line, "-" for
stdin), from crawls in the crawl store, from a websocket endpoint or from the
built-in sample. The final layout is printed as a report; --frames also
renders it as SVG or JSON.

Examples:
  # Lay out the built-in six page sample and render it
  crawlgraph layout --sample --frames sample.svg

  # Replay a stored crawl and print a Markdown report
  crawlgraph layout --crawl-id 3f1c... --markdown

  # Read JSON Lines from another program
  some-crawler | crawlgraph layout - --json

  # Follow a crawl served by another crawlgraph and keep the SVG current
  crawlgraph layout --ws ws://host:8080/events --subscribe 3f1c... --frames live.svg --watch`,
		Args: cobra.ArbitraryArgs,
		RunE: runLayoutCmd,
	}

	cmd.Flags().Bool("sample", false, "Use the built-in six page sample crawl")
	cmd.Flags().StringSlice("crawl-id", nil, "Replay a crawl from the crawl store (repeatable)")
	cmd.Flags().String("ws", "", "Websocket endpoint publishing crawl events")
	cmd.Flags().String("subscribe", "", "CrawlID to subscribe to on --ws")
	cmd.Flags().StringP("frames", "f", "",
		`Render the layout to this file (.svg, .json) or "-" for JSON Lines on stdout`)
	cmd.Flags().Bool("watch", false, "Render every frame while events arrive, not only the last")
	cmd.Flags().Duration("tick", config.DefaultTickInterval, "Tick interval with --watch")
	addLayoutFlags(cmd)
	addReportFlags(cmd)

	return cmd
}

// layoutOptions are the source and output settings of the layout command.
type layoutOptions struct {
	files     []string
	sample    bool
	crawlIDs  []string
	wsURL     string
	subscribe string
	frames    string
	watch     bool
}

func runLayoutCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
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
	if opts.frames, err = flags.GetString("frames"); err != nil {
		return err
	}
	if opts.watch, err = flags.GetBool("watch"); err != nil {
		return err
	}
	if cfg.TickInterval, err = flags.GetDuration("tick"); err != nil {
		return err
	}
	cfg.FrameFile = opts.frames

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	sources, closeSources, err := openSources(cmd, opts, logger)
	if err != nil {
		return err
	}
	defer closeSources()

	return runLayout(ctx, cfg, opts, sources, cmd.OutOrStdout(), logger)
}

// openSources builds the event sources named by opts. The returned function
// releases them.
func openSources(cmd *cobra.Command, opts layoutOptions, logger *slog.Logger) ([]ingest.Source, func(), error) {
	var (
		sources []ingest.Source
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Debug("failed to close source", slog.String("error", err.Error()))
			}
		}
	}

	for _, path := range opts.files {
		src, err := ingest.NewFileSource(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sources = append(sources, src)
		closers = append(closers, src)
	}

	if opts.sample {
		sources = append(sources, ingest.NewSliceSource(ingest.SampleEvents()))
	}

	if len(opts.crawlIDs) > 0 {
		db, err := openStore(cmd, false)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, db)
		for _, id := range opts.crawlIDs {
			resolved, err := resolveCrawlID(cmd.Context(), db, id)
			if err != nil {
				closeAll()
				return nil, nil, err
			}
			sources = append(sources, ingest.NewStoreSource(db, resolved))
		}
	}

	if opts.wsURL != "" {
		src := ingest.NewWebSocketSource(opts.wsURL, opts.subscribe)
		sources = append(sources, src)
		closers = append(closers, src)
	}

	if len(sources) == 0 {
		return nil, nil, errNoSource
	}
	return sources, closeAll, nil
}

// runLayout consumes every source, settles the simulation, renders the last
// frame and prints the report.
func runLayout(ctx context.Context, cfg *config.Config, opts layoutOptions, sources []ingest.Source, stdout io.Writer, logger *slog.Logger) error {
	in := newIngestor(cfg, logger, nil)

	var surface render.Surface
	if cfg.FrameFile != "" {
		surface = frameSurface(cfg.FrameFile, stdout)
	}
	if opts.watch && surface != nil {
		in.Mount(ctx, surface)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			return in.Consume(gctx, src)
		})
	}
	consumeErr := g.Wait()

	if in.Mounted() {
		if err := in.Unmount(); err != nil {
			logger.Warn("failed to stop layout loop", slog.String("error", err.Error()))
		}
	}
	if consumeErr != nil && ctx.Err() == nil {
		return consumeErr
	}

	ticks := in.Settle(ctx)
	stats := in.Stats()
	logger.Info("layout finished",
		slog.Int("ticks", ticks),
		slog.Int("steps", stats.Steps),
		slog.Bool("converged", stats.Converged),
		slog.Duration("elapsed", time.Since(start)))

	if surface != nil {
		if err := surface.Draw(in.Frame()); err != nil {
			return fmt.Errorf("failed to render frame: %w", err)
		}
	}

	// A JSON Lines frame stream on stdout owns stdout.
	if cfg.FrameFile == "-" && cfg.ReportFile == "" {
		return nil
	}
	return outputReport(cfg, stdout, func(w report.Writer) error {
		_, err := w.Write(in.Report())
		return err
	})
}
