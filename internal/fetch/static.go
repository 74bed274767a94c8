package fetch

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"catalot/lotworker/config"
	"catalot/lotworker/helpers"
	"catalot/lotworker/logger"
	"catalot/lotworker/pkg/errors"
)

// StaticFetcher retrieves pages over plain HTTP with browser-like
// headers. It cannot run page scripts, so it only sees server-rendered
// content; the chrome fetcher is the primary implementation and this
// one serves smoke tests and the rare page that renders without JS.
type StaticFetcher struct {
	client  *http.Client
	robots  *RobotsChecker
	limiter *rate.Limiter
	preNav  *Delay
	retries int
	log     *logger.Logger
}

// NewStaticFetcher creates a plain-HTTP fetcher from the configuration.
func NewStaticFetcher(cfg config.Config) *StaticFetcher {
	return &StaticFetcher{
		client:  helpers.NewClient(cfg.ProxyURL),
		robots:  NewRobotsChecker(cfg.RespectRobots),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		preNav:  &Delay{Min: 500 * time.Millisecond, Max: 2 * time.Second},
		retries: cfg.FetchRetries,
		log:     logger.ForFetcher("static"),
	}
}

// Fetch retrieves url and returns the parsed page with its status code.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	ua := helpers.RandomUserAgent()
	if !f.robots.IsAllowed(ua, url) {
		return nil, errors.NewValidation(url, "disallowed by robots.txt")
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if err := f.preNav.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		body, status, finalURL, err := helpers.FetchWithClient(f.client, url)
		if err != nil {
			lastErr = errors.NewNetwork(url, "fetch failed", err)
			if attempt < f.retries {
				f.log.Warn().
					Str("url", url).
					Int("attempt", attempt).
					Err(err).
					Msg("Fetch failed, retrying")
				if serr := Sleep(ctx, Backoff(attempt)); serr != nil {
					return nil, serr
				}
			}
			continue
		}

		page, perr := NewPage(string(body), finalURL)
		if perr != nil {
			return nil, errors.NewNetwork(url, "parsing response failed", perr)
		}
		return &Result{Status: status, Page: page}, nil
	}
	return nil, lastErr
}
