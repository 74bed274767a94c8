// Package worker runs category crawls on a fixed interval and pushes
// every assembled lot record to the publisher.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"catalot/lotworker/internal/lot"
	"catalot/lotworker/logger"
	"catalot/lotworker/pkg/errors"
	"catalot/lotworker/services/publisher"
)

// streamKey is the field name lot records are published under.
const streamKey = "lot"

// CategoryScraper is the crawl capability the worker needs.
type CategoryScraper interface {
	ScrapeCategory(ctx context.Context, categoryURL string, maxPages int) ([]lot.Record, error)
}

// Worker drives the crawl controller and publisher on a schedule.
type Worker struct {
	controller    CategoryScraper
	publisher     publisher.Publisher
	categories    []string
	maxPages      int
	crawlInterval time.Duration
	log           *logger.Logger
}

// NewWorker creates a worker that crawls the given category URLs.
func NewWorker(controller CategoryScraper, pub publisher.Publisher, categories []string, maxPages int, crawlInterval time.Duration) *Worker {
	return &Worker{
		controller:    controller,
		publisher:     pub,
		categories:    categories,
		maxPages:      maxPages,
		crawlInterval: crawlInterval,
		log:           logger.ForWorker(),
	}
}

// Start runs crawl cycles until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	for {
		start := time.Now()
		w.runCycle(ctx)
		w.log.Info().Dur("elapsed", time.Since(start)).Msg("Crawl cycle finished")

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping")
			return nil
		case <-time.After(w.crawlInterval):
		}
	}
}

// runCycle crawls every configured category in order. Categories are
// crawled serially; they all hit the same site and parallel crawls
// would only trip the bot detection sooner.
func (w *Worker) runCycle(ctx context.Context) {
	for _, category := range w.categories {
		if ctx.Err() != nil {
			return
		}
		w.crawlAndPublish(ctx, category)
	}

	if err := w.publisher.TrimStreams(); err != nil {
		w.log.Error().Err(err).Msg("Stream trimming failed")
	}
}

func (w *Worker) crawlAndPublish(ctx context.Context, category string) {
	records, err := w.controller.ScrapeCategory(ctx, category, w.maxPages)
	if err != nil {
		if errors.IsBlocked(err) {
			w.log.Warn().Str("category", category).Msg("Category blocked, will retry next cycle")
			return
		}
		w.log.Error().Err(err).Str("category", category).Msg("Category crawl failed")
		return
	}

	published := 0
	for _, rec := range records {
		if err := w.publishRecord(rec); err != nil {
			w.log.Error().Err(err).Str("url", rec.URL).Msg("Publish failed")
			continue
		}
		published++
	}
	w.log.Info().
		Str("category", category).
		Int("scraped", len(records)).
		Int("published", published).
		Msg("Category published")
}

func (w *Worker) publishRecord(rec lot.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.NewPublisher(rec.URL, "marshal lot record", err)
	}
	if err := w.publisher.Publish(streamKey, data); err != nil {
		return errors.NewPublisher(rec.URL, "publish lot record", err)
	}
	return nil
}
