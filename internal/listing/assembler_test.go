package listing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalot/lotworker/config"
	"catalot/lotworker/internal/diag"
	"catalot/lotworker/internal/extract"
	"catalot/lotworker/internal/fetch"
	"catalot/lotworker/pkg/errors"
)

const lotURL = "https://www.catawiki.com/en/l/55511-rioja-reserva-collection"

type stubFetcher struct {
	html   string
	status int
	err    error
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	page, err := fetch.NewPage(s.html, url)
	if err != nil {
		return nil, err
	}
	status := s.status
	if status == 0 {
		status = 200
	}
	return &fetch.Result{Status: status, Page: page}, nil
}

func newTestAssembler(fetcher fetch.Fetcher, debugDir string) *Assembler {
	cfg := config.Config{AssetDomain: "assets.catawiki", ImageLimit: 10}
	return NewAssembler(fetcher, extract.New(cfg), diag.NewSink(debugDir))
}

func TestAssembleSuccess(t *testing.T) {
	fetcher := &stubFetcher{html: `<html><body>
		<h1>Rioja Reserva Collection 2010</h1>
		<div data-testid="current-bid">€95</div>
	</body></html>`}

	a := newTestAssembler(fetcher, t.TempDir())
	rec, err := a.Assemble(context.Background(), lotURL)
	require.NoError(t, err)
	assert.Equal(t, "Rioja Reserva Collection 2010", rec.Title)
	assert.Equal(t, "€95", rec.CurrentPrice)
	assert.Equal(t, lotURL, rec.URL)
	assert.False(t, rec.ScrapedAt.IsZero())
}

func TestAssembleBlockedSkipsExtraction(t *testing.T) {
	fetcher := &stubFetcher{html: "<html><body>Access denied</body></html>", status: 403}

	a := newTestAssembler(fetcher, t.TempDir())
	rec, err := a.Assemble(context.Background(), lotURL)
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.True(t, errors.IsBlocked(err))
}

func TestAssembleFetchError(t *testing.T) {
	fetcher := &stubFetcher{err: errors.NewNetwork(lotURL, "dial timeout", nil)}

	a := newTestAssembler(fetcher, t.TempDir())
	rec, err := a.Assemble(context.Background(), lotURL)
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.False(t, errors.IsBlocked(err))
}

func TestAssembleNoTitleDumpsPage(t *testing.T) {
	dir := t.TempDir()
	fetcher := &stubFetcher{html: "<html><body><p>redesigned layout</p></body></html>"}

	a := newTestAssembler(fetcher, dir)
	rec, err := a.Assemble(context.Background(), lotURL)
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no title")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "page_55511_"))
	assert.Equal(t, ".html", filepath.Ext(entries[0].Name()))
}
