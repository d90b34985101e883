package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/crawlgraph/internal/database"
	"github.com/nao1215/crawlgraph/internal/model"
	"github.com/nao1215/crawlgraph/internal/report"
)

var (
	// errAmbiguousCrawlID is returned when a crawl id prefix matches more
	// than one crawl.
	errAmbiguousCrawlID = errors.New("ambiguous crawl id prefix")

	// errNotEnoughCrawls is returned by --seed when fewer than two crawls
	// of the seed are stored.
	errNotEnoughCrawls = errors.New("at least two crawls are needed to compare")
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [base-crawl-id target-crawl-id]",
		Short: "Compare the link structure of two stored crawls",
		Long: `Compare shows how the link graph changed between two crawls stored in the
crawl store: pages and links that appeared, pages and links that went away,
and how much stayed the same.

Crawl ids may be abbreviated to any unique prefix.

Examples:
  # List stored crawls
  crawlgraph compare --list

  # Compare two crawls
  crawlgraph compare 3f1c 9ab0

  # Compare the two latest crawls of a seed
  crawlgraph compare --seed https://example.com

  # Markdown output
  crawlgraph compare --markdown 3f1c 9ab0`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 crawl ids, received %d", len(args))
			}
			return nil
		},
		RunE: runCompareCmd,
	}

	cmd.Flags().BoolP("list", "l", false, "List stored crawls")
	cmd.Flags().StringP("seed", "s", "", "Compare the two latest crawls of this seed URL")
	addReportFlags(cmd)

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	seed, err := cmd.Flags().GetString("seed")
	if err != nil {
		return err
	}

	// Validate arguments before opening the store
	if !list && seed == "" && len(args) != 2 {
		return errors.New("two crawl ids are required (use --list to see stored crawls)")
	}

	setupLogger(cmd)
	db, err := openStore(cmd, false)
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return errors.New("no crawls stored yet (use 'crawlgraph crawl' first)")
		}
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if list {
		return listCrawls(ctx, db, cmd.OutOrStdout())
	}

	var baseID, targetID string
	if seed != "" {
		baseID, targetID, err = latestTwo(ctx, db, seed)
	} else {
		baseID, err = resolveCrawlID(ctx, db, args[0])
		if err == nil {
			targetID, err = resolveCrawlID(ctx, db, args[1])
		}
	}
	if err != nil {
		return err
	}

	diff, err := compareCrawls(ctx, db, baseID, targetID)
	if err != nil {
		return err
	}
	return outputReport(cfg, cmd.OutOrStdout(), func(w report.Writer) error {
		_, err := w.WriteDiff(diff)
		return err
	})
}

// compareCrawls loads two crawls and their events and diffs them.
func compareCrawls(ctx context.Context, db *database.CrawlDB, baseID, targetID string) (*model.CrawlDiff, error) {
	load := func(id string) (*model.Crawl, []model.CrawlEvent, error) {
		c, err := db.GetCrawl(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load crawl %s: %w", id, err)
		}
		events, err := db.Events(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load events of crawl %s: %w", id, err)
		}
		return c, events, nil
	}

	base, baseEvents, err := load(baseID)
	if err != nil {
		return nil, err
	}
	target, targetEvents, err := load(targetID)
	if err != nil {
		return nil, err
	}
	return model.NewCrawlDiff(base, target, baseEvents, targetEvents), nil
}

// resolveCrawlID expands a unique id prefix to a stored crawl id.
func resolveCrawlID(ctx context.Context, db *database.CrawlDB, prefix string) (string, error) {
	if _, err := db.GetCrawl(ctx, prefix); err == nil {
		return prefix, nil
	} else if !errors.Is(err, database.ErrCrawlNotFound) {
		return "", err
	}

	crawls, err := db.ListCrawls(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list crawls: %w", err)
	}
	var match string
	for _, c := range crawls {
		if !strings.HasPrefix(c.ID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%w: %s", errAmbiguousCrawlID, prefix)
		}
		match = c.ID
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", database.ErrCrawlNotFound, prefix)
	}
	return match, nil
}

// latestTwo returns the previous and the latest crawl of seed.
func latestTwo(ctx context.Context, db *database.CrawlDB, seed string) (string, string, error) {
	crawls, err := db.ListCrawls(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to list crawls: %w", err)
	}
	var ids []string
	for _, c := range crawls {
		if c.Seed == seed {
			ids = append(ids, c.ID)
		}
		if len(ids) == 2 {
			// Newest first
			return ids[1], ids[0], nil
		}
	}
	return "", "", fmt.Errorf("%w: %d stored for %s", errNotEnoughCrawls, len(ids), seed)
}

// listCrawls prints every stored crawl, newest first.
func listCrawls(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	crawls, err := db.ListCrawls(ctx)
	if err != nil {
		return fmt.Errorf("failed to list crawls: %w", err)
	}
	if len(crawls) == 0 {
		fmt.Fprintln(out, "No crawls found in the crawl store.")
		fmt.Fprintln(out, "\nUse 'crawlgraph crawl <seed-url>' to record one.")
		return nil
	}

	fmt.Fprintf(out, "Stored crawls (%d):\n\n", len(crawls))
	fmt.Fprintf(out, "  %-36s  %-16s  %6s  %6s  %s\n", "ID", "Started", "Pages", "Events", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 90))
	for _, c := range crawls {
		seed := c.Seed
		switch {
		case c.TimedOut:
			seed += " (interrupted)"
		case !c.Finished():
			seed += " (unfinished)"
		}
		fmt.Fprintf(out, "  %-36s  %-16s  %6d  %6d  %s\n",
			c.ID, c.StartedAt.Local().Format("2006-01-02 15:04"), c.PagesCrawled, c.EventsEmitted, seed)
	}
	fmt.Fprintln(out, "\nUse 'crawlgraph compare <base-id> <target-id>' to compare two crawls.")
	return nil
}
