package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/crawlgraph/internal/config"
)

// NewRootCmd creates the root command for crawlgraph.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawlgraph",
		Short: "Crawl websites and lay out their link graph",
		Long: `crawlgraph crawls websites and lays out the link graph they form.

Every fetched page becomes a crawl event: the page URL and the links found on
it. Events are stored per crawl and can be replayed into a force-directed
layout, rendered as SVG or JSON, summarised as a report or watched live in a
browser.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("db-dir", "",
		"Crawl store directory (default: "+config.XDGDataDir()+")")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewLayoutCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
