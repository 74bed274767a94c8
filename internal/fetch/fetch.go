package fetch

import (
	"context"

	"catalot/lotworker/helpers"
)

// Result is the outcome of fetching one URL. A block response is not an
// error at this layer; the caller decides whether it is fatal.
type Result struct {
	Status     int
	Page       *Page
	Screenshot []byte
}

// Blocked reports whether the fetch was denied by bot protection.
func (r *Result) Blocked() bool {
	return helpers.IsBlockStatus(r.Status)
}

// Fetcher retrieves one URL and returns its rendered content. Every
// implementation is serial: a call blocks until the page is loaded or
// the retry budget is spent.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}

// Closer is implemented by fetchers that hold a browser process.
type Closer interface {
	Close() error
}
