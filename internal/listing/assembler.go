// Package listing assembles one structured lot record from one item URL.
package listing

import (
	"context"
	"fmt"
	"time"

	"catalot/lotworker/internal/diag"
	"catalot/lotworker/internal/extract"
	"catalot/lotworker/internal/fetch"
	"catalot/lotworker/internal/lot"
	"catalot/lotworker/logger"
	"catalot/lotworker/pkg/errors"
)

// Assembler drives one fetch-and-extract cycle per listing. It is the
// error boundary for everything below it: nothing from the fetch or
// DOM layer propagates past Assemble.
type Assembler struct {
	fetcher   fetch.Fetcher
	extractor *extract.Extractor
	sink      *diag.Sink
	log       *logger.Logger
}

// NewAssembler creates an assembler.
func NewAssembler(fetcher fetch.Fetcher, extractor *extract.Extractor, sink *diag.Sink) *Assembler {
	return &Assembler{
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		log:       logger.ForAssembler(),
	}
}

// Assemble fetches url and extracts a lot record from it. A block
// response fails immediately without extraction; a record without a
// title is a failure with its page content captured for diagnosis.
func (a *Assembler) Assemble(ctx context.Context, url string) (rec *lot.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = errors.NewListing(url, fmt.Sprintf("unexpected fault: %v", r), nil)
		}
	}()

	result, ferr := a.fetcher.Fetch(ctx, url)
	if ferr != nil {
		return nil, errors.NewListing(url, "fetch failed", ferr)
	}

	if result.Blocked() {
		// No point extracting from a challenge page
		return nil, errors.NewBlocked(url, result.Status)
	}

	rec = a.extractor.Extract(result.Page)
	rec.URL = result.Page.URL()
	rec.ScrapedAt = time.Now()

	if !rec.Usable() {
		if a.sink != nil {
			a.sink.DumpHTML(url, result.Page.HTML())
			a.sink.SaveScreenshot(url, result.Screenshot)
		}
		return nil, errors.NewListing(url, "no title extracted", nil)
	}

	a.log.Info().
		Str("url", url).
		Str("title", rec.Title).
		Int("images", len(rec.Images)).
		Msg("Listing assembled")

	return rec, nil
}
