package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"catalot/lotworker/internal/crawl"
	"catalot/lotworker/internal/metrics"
	"catalot/lotworker/services/cache"
	"catalot/lotworker/services/publisher"
	"catalot/lotworker/services/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Crawl categories on an interval and publish lots to Redis",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().StringSlice("category", nil, "Category URL to crawl (repeatable, default CATEGORY_URL)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	categories, _ := cmd.Flags().GetStringSlice("category")
	if len(categories) == 0 && cfg.CategoryURL != "" {
		categories = strings.Split(cfg.CategoryURL, ",")
	}
	if len(categories) == 0 {
		return fmt.Errorf("at least one category URL required (flag or CATEGORY_URL)")
	}

	ctx := cmd.Context()

	fetcher := buildFetcher()
	defer closeFetcher(fetcher)
	assembler := buildAssembler(fetcher)

	cacheSvc := cache.NewMemcacheService(cfg.MemcacheAddr)
	m := metrics.New()
	controller := crawl.NewController(cfg, fetcher, assembler, cacheSvc, m)

	pub := publisher.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisDB,
		cfg.RedisStream, cfg.RedisStreamCount, cfg.RedisStreamMaxLength)
	defer pub.Close()

	w := worker.NewWorker(controller, pub, categories, cfg.MaxPages, cfg.CrawlInterval)
	return w.Start(ctx)
}
