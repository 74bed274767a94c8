// Package crawl turns one category URL into a list of lot records.
//
// The crawl is deliberately serial: index pages are walked one by one,
// then each discovered item URL is fetched and assembled with a fixed
// delay in between. Partial success is the expected common case; the
// only fatal condition is the category's own first page being blocked.
package crawl

import (
	"context"
	"fmt"
	"time"

	"catalot/lotworker/config"
	"catalot/lotworker/internal/fetch"
	"catalot/lotworker/internal/lot"
	"catalot/lotworker/internal/metrics"
	"catalot/lotworker/logger"
	"catalot/lotworker/pkg/errors"
	"catalot/lotworker/services/cache"
)

// Assembler produces one record from one item URL.
type Assembler interface {
	Assemble(ctx context.Context, url string) (*lot.Record, error)
}

// State is the accumulated result of one category crawl. It is mutated
// only by the single crawl control flow and frozen once the crawl ends.
type State struct {
	CategoryURL string
	MaxPages    int
	TotalPages  int
	Discovered  []string
	Records     []lot.Record
	Attempted   int
	Succeeded   int
	Failed      int

	seen map[string]struct{}
}

// Controller walks a category and drives the assembler over every
// discovered lot.
type Controller struct {
	fetcher   fetch.Fetcher
	assembler Assembler
	cache     cache.CacheService
	metrics   *metrics.Metrics

	baseURL       string
	pageDelay     time.Duration
	itemDelay     time.Duration
	blockCooldown time.Duration
}

// NewController creates a crawl controller. The cache and metrics are
// optional.
func NewController(cfg config.Config, fetcher fetch.Fetcher, assembler Assembler, cacheSvc cache.CacheService, m *metrics.Metrics) *Controller {
	return &Controller{
		fetcher:       fetcher,
		assembler:     assembler,
		cache:         cacheSvc,
		metrics:       m,
		baseURL:       cfg.BaseURL,
		pageDelay:     cfg.PageDelay,
		itemDelay:     cfg.ItemDelay,
		blockCooldown: cfg.BlockCooldown,
	}
}

// ScrapeCategory crawls categoryURL and returns the successfully
// assembled records in discovery order. maxPages of zero means all
// discovered pages.
func (c *Controller) ScrapeCategory(ctx context.Context, categoryURL string, maxPages int) ([]lot.Record, error) {
	state, err := c.Run(ctx, categoryURL, maxPages)
	if err != nil {
		return nil, err
	}
	return state.Records, nil
}

// Run crawls categoryURL and returns the full crawl state.
func (c *Controller) Run(ctx context.Context, categoryURL string, maxPages int) (*State, error) {
	log := logger.ForCrawl(categoryURL)
	state := &State{
		CategoryURL: categoryURL,
		MaxPages:    maxPages,
		seen:        make(map[string]struct{}),
	}

	if c.categoryBlocked(categoryURL) {
		log.Warn().Msg("Category is in block cooldown, skipping crawl")
		return state, errors.NewBlocked(categoryURL, 0)
	}

	// First index page doubles as the pagination probe
	first, err := c.fetchIndex(ctx, categoryURL)
	if err != nil {
		return state, err
	}
	if first.Blocked() {
		// A category-level block means every subsequent page would also
		// block; give up immediately and back off.
		c.metrics.IncBlocked()
		c.rememberBlock(categoryURL)
		log.Error().Int("status", first.Status).Msg("Category page blocked, aborting crawl")
		return state, errors.NewBlocked(categoryURL, first.Status)
	}

	state.TotalPages = discoverPageCount(first.Page)
	effective := state.TotalPages
	if maxPages > 0 && maxPages < effective {
		effective = maxPages
	}
	log.Info().
		Int("total_pages", state.TotalPages).
		Int("effective_pages", effective).
		Msg("Pagination discovered")

	for pageNum := 1; pageNum <= effective; pageNum++ {
		page := first.Page
		if pageNum > 1 {
			if err := fetch.Sleep(ctx, c.pageDelay); err != nil {
				return state, err
			}
			pageURL, err := indexPageURL(categoryURL, pageNum)
			if err != nil {
				log.Warn().Err(err).Int("page", pageNum).Msg("Bad page URL, skipping")
				continue
			}
			result, err := c.fetchIndex(ctx, pageURL)
			if err != nil {
				log.Warn().Err(err).Int("page", pageNum).Msg("Index page fetch failed, skipping")
				c.metrics.IncFailure("index_fetch")
				continue
			}
			if result.Blocked() {
				log.Warn().Int("page", pageNum).Int("status", result.Status).Msg("Index page blocked, skipping")
				c.metrics.IncBlocked()
				continue
			}
			page = result.Page
		}

		urls := extractLotURLs(page, c.baseURL)
		for _, u := range urls {
			if _, ok := state.seen[u]; ok {
				continue
			}
			state.seen[u] = struct{}{}
			state.Discovered = append(state.Discovered, u)
		}
		log.Info().
			Int("page", pageNum).
			Int("lots", len(urls)).
			Int("unique_total", len(state.Discovered)).
			Msg("Index page processed")
	}

	c.scrapeItems(ctx, state, log)

	log.Info().
		Int("discovered", len(state.Discovered)).
		Int("succeeded", state.Succeeded).
		Int("failed", state.Failed).
		Msg("Category crawl finished")

	return state, nil
}

// scrapeItems drives the assembler over every unique discovered URL.
// A per-item failure is logged and skipped; it never aborts the rest.
func (c *Controller) scrapeItems(ctx context.Context, state *State, log *logger.Logger) {
	for i, u := range state.Discovered {
		if i > 0 {
			if err := fetch.Sleep(ctx, c.itemDelay); err != nil {
				return
			}
		}

		state.Attempted++
		c.metrics.IncFetch("item")
		rec, err := c.assembleSafely(ctx, u)
		if err != nil {
			state.Failed++
			c.metrics.IncFailure("item")
			log.Warn().Err(err).Str("url", u).Msg("Lot skipped")
			continue
		}
		state.Succeeded++
		c.metrics.IncLots()
		state.Records = append(state.Records, *rec)
	}
}

// assembleSafely converts a panicking assembler into a plain error so a
// single bad item cannot take down the crawl loop.
func (c *Controller) assembleSafely(ctx context.Context, url string) (rec *lot.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = errors.NewListing(url, fmt.Sprintf("assembler panic: %v", r), nil)
		}
	}()
	return c.assembler.Assemble(ctx, url)
}

func (c *Controller) fetchIndex(ctx context.Context, url string) (*fetch.Result, error) {
	c.metrics.IncFetch("index")
	start := time.Now()
	result, err := c.fetcher.Fetch(ctx, url)
	c.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// blockKey is the cooldown cache key for a category URL.
func blockKey(categoryURL string) string {
	return "category_blocked:" + categoryURL
}

func (c *Controller) categoryBlocked(categoryURL string) bool {
	if c.cache == nil {
		return false
	}
	_, err := c.cache.Get(blockKey(categoryURL))
	return err == nil
}

func (c *Controller) rememberBlock(categoryURL string) {
	if c.cache == nil || c.blockCooldown <= 0 {
		return
	}
	if err := c.cache.Set(blockKey(categoryURL), []byte("1"), c.blockCooldown); err != nil {
		logger.ForCache().Warn().Err(err).Msg("Block cooldown not recorded")
	}
}
