package fetch

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"catalot/lotworker/config"
	"catalot/lotworker/helpers"
	"catalot/lotworker/logger"
	"catalot/lotworker/pkg/errors"
)

// stealthScript hides the usual headless giveaways before any page
// script runs.
const stealthScript = `
	Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
	Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3]});
	Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
	window.chrome = {runtime: {}};
`

// ChromeFetcher renders pages in a headless browser. The browser is
// launched lazily on the first fetch and reused until Close.
type ChromeFetcher struct {
	headless    bool
	bin         string
	proxy       string
	navTimeout  time.Duration
	waitTimeout time.Duration
	retries     int
	screenshots bool
	preNav      *Delay
	log         *logger.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewChromeFetcher creates a browser-backed fetcher from the configuration.
func NewChromeFetcher(cfg config.Config) *ChromeFetcher {
	return &ChromeFetcher{
		headless:    cfg.Headless,
		bin:         cfg.ChromeBin,
		proxy:       cfg.ProxyURL,
		navTimeout:  cfg.NavTimeout,
		waitTimeout: cfg.WaitTimeout,
		retries:     cfg.FetchRetries,
		screenshots: cfg.Screenshots,
		preNav:      &Delay{Min: time.Second, Max: 3 * time.Second},
		log:         logger.ForFetcher("chrome"),
	}
}

// Fetch navigates to url and returns the rendered page with the main
// document status. A timeout degrades to whatever content loaded rather
// than failing outright; only an exhausted retry budget with no content
// is an error.
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	browser, err := f.connect()
	if err != nil {
		return nil, errors.NewNetwork(url, "browser launch failed", err)
	}

	// Short randomized pause before navigation
	if err := f.preNav.Wait(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		result, err := f.fetchOnce(ctx, browser, url)
		if err == nil {
			return result, nil
		}
		lastErr = err

		se, ok := err.(*errors.ScrapeError)
		if !ok || !se.IsRetryable() {
			return nil, err
		}
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
	}
	return nil, lastErr
}

func (f *ChromeFetcher) fetchOnce(ctx context.Context, browser *rod.Browser, url string) (*Result, error) {
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errors.NewNetwork(url, "open page failed", err)
	}
	defer page.Close()

	if _, err := page.EvalOnNewDocument(stealthScript); err != nil {
		f.log.Warn().Err(err).Msg("Stealth script injection failed")
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1920,
		Height: 1080,
	}); err != nil {
		f.log.Warn().Err(err).Msg("Viewport override failed")
	}
	if _, err := page.SetExtraHeaders([]string{
		"Accept-Language", "en-US,en;q=0.9",
	}); err != nil {
		f.log.Warn().Err(err).Msg("Header override failed")
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: helpers.RandomUserAgent(),
	}); err != nil {
		f.log.Warn().Err(err).Msg("User agent override failed")
	}

	page = page.Context(ctx)

	// Watch for the main document response so the caller can tell a real
	// page from a block page. The event callback runs on rod's event
	// goroutine, so the status crosses goroutines atomically; returning
	// true stops the loop after the document response.
	var status atomic.Int32
	if err := (proto.NetworkEnable{}).Call(page); err == nil {
		go page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
			if e.Type == proto.NetworkResourceTypeDocument {
				status.CompareAndSwap(0, int32(e.Response.Status))
				return true
			}
			return false
		})()
	}

	if err := page.Timeout(f.navTimeout).Navigate(url); err != nil {
		return nil, errors.NewNetwork(url, "navigation failed", err)
	}
	if err := page.Timeout(f.navTimeout).WaitLoad(); err != nil {
		// Partially loaded pages are still worth extracting from.
		f.log.Warn().Str("url", url).Msg("Load wait expired, continuing with partial content")
	}

	// Wait for the title element as a content marker; its absence is
	// tolerated so a degraded page still reaches extraction.
	if _, err := page.Timeout(f.waitTimeout).Element("h1"); err != nil {
		f.log.Debug().Str("url", url).Msg("Content marker not found")
	}

	f.scroll(page)

	// Settle delay for late-loading widgets
	if err := Sleep(ctx, 2*time.Second); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, errors.NewTimeout(url, "reading rendered content failed", err)
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	p, err := NewPage(html, finalURL)
	if err != nil {
		return nil, errors.NewNetwork(url, "parsing rendered content failed", err)
	}

	code := int(status.Load())
	if code == 0 {
		code = 200
	}
	result := &Result{Status: code, Page: p}

	if f.screenshots {
		shot, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err == nil {
			result.Screenshot = shot
		}
	}

	return result, nil
}

// scroll simulates a partial human read-through of the page.
func (f *ChromeFetcher) scroll(page *rod.Page) {
	for _, y := range []int{400, 900, 1400} {
		if _, err := page.Eval(`(y) => window.scrollTo(0, y)`, y); err != nil {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	_, _ = page.Eval(`() => window.scrollTo(0, 0)`)
}

func (f *ChromeFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().
		Headless(f.headless).
		Logger(io.Discard).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("no-sandbox")
	if f.bin != "" {
		l = l.Bin(f.bin)
	}
	if f.proxy != "" {
		l = l.Proxy(f.proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, err
	}

	f.log.Info().Bool("headless", f.headless).Msg("Browser launched")

	f.launcher = l
	f.browser = browser
	return browser, nil
}

// Close shuts down the browser process.
func (f *ChromeFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.launcher.Cleanup()
	f.browser = nil
	f.launcher = nil
	return err
}
