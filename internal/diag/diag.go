// Package diag captures failure artifacts for offline analysis.
// Structural drift on the target site is the primary failure mode, so a
// failed extraction keeps the page it could not parse.
package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"catalot/lotworker/helpers"
	"catalot/lotworker/logger"
)

// Sink writes diagnostic artifacts to a directory. Every method is
// fire-and-forget: a failing sink is logged and never escalated.
type Sink struct {
	dir string
	log *logger.Logger
}

// NewSink creates a sink rooted at dir.
func NewSink(dir string) *Sink {
	return &Sink{
		dir: dir,
		log: logger.ForDiag(),
	}
}

// DumpHTML stores the raw page content of a listing that failed
// extraction.
func (s *Sink) DumpHTML(url, html string) {
	s.write(s.filename(url, "page", "html"), []byte(html))
}

// SaveScreenshot stores a screenshot captured by the fetcher, when one
// is available.
func (s *Sink) SaveScreenshot(url string, png []byte) {
	if len(png) == 0 {
		return
	}
	s.write(s.filename(url, "screenshot", "png"), png)
}

func (s *Sink) filename(url, kind, ext string) string {
	id, err := helpers.LotID(url)
	if err != nil {
		id = "unknown"
	}
	return fmt.Sprintf("%s_%s_%d.%s", kind, id, time.Now().Unix(), ext)
}

func (s *Sink) write(name string, data []byte) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.log.Warn().Err(err).Msg("Diagnostic directory unavailable")
		return
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("Diagnostic write failed")
		return
	}
	s.log.Info().Str("path", path).Msg("Diagnostic artifact saved")
}
