// Package cmd wires the lotworker commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"catalot/lotworker/config"
	"catalot/lotworker/internal/crawl"
	"catalot/lotworker/internal/diag"
	"catalot/lotworker/internal/extract"
	"catalot/lotworker/internal/fetch"
	"catalot/lotworker/internal/listing"
	"catalot/lotworker/internal/metrics"
	"catalot/lotworker/logger"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "lotworker",
	Short: "Catawiki lot scraping CLI, worker and API server",
	Long:  "Scrapes auction lot listings and category pages, with output to files, Redis streams or an HTTP API.",
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Bool("headless", true, "Run the browser headless")
	rootCmd.PersistentFlags().String("proxy", "", "Proxy URL for browser traffic")
	rootCmd.PersistentFlags().Bool("static", false, "Use the plain HTTP fetcher instead of the browser")
	rootCmd.PersistentFlags().Bool("screenshots", false, "Save a screenshot of every fetched page")
	rootCmd.PersistentFlags().String("debug-dir", "", "Directory for failure diagnostics")
}

func initConfig() {
	// Missing .env is fine; real deployments set the environment directly
	godotenv.Load()

	logger.Init()
	cfg = config.LoadConfig()

	if f := rootCmd.PersistentFlags(); f.Changed("headless") {
		cfg.Headless, _ = f.GetBool("headless")
	}
	if v, _ := rootCmd.PersistentFlags().GetString("proxy"); v != "" {
		cfg.ProxyURL = v
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("screenshots"); v {
		cfg.Screenshots = true
	}
	if v, _ := rootCmd.PersistentFlags().GetString("debug-dir"); v != "" {
		cfg.DebugDir = v
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildFetcher picks the browser or static fetcher from flags.
func buildFetcher() fetch.Fetcher {
	if v, _ := rootCmd.PersistentFlags().GetBool("static"); v {
		return fetch.NewStaticFetcher(cfg)
	}
	return fetch.NewChromeFetcher(cfg)
}

// buildAssembler assembles the single-lot scraping stack.
func buildAssembler(fetcher fetch.Fetcher) *listing.Assembler {
	extractor := extract.New(cfg)
	sink := diag.NewSink(cfg.DebugDir)
	return listing.NewAssembler(fetcher, extractor, sink)
}

// buildController assembles the category crawl stack without cache or
// metrics; commands that need those pass them explicitly.
func buildController(fetcher fetch.Fetcher, assembler *listing.Assembler, m *metrics.Metrics) *crawl.Controller {
	return crawl.NewController(cfg, fetcher, assembler, nil, m)
}

// closeFetcher shuts the browser down when the fetcher owns one.
func closeFetcher(fetcher fetch.Fetcher) {
	if closer, ok := fetcher.(fetch.Closer); ok {
		closer.Close()
	}
}
