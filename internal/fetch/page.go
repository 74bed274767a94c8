package fetch

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Page is a detached snapshot of a rendered document. All extraction
// strategies operate on it; it never reaches back to the browser.
type Page struct {
	doc  *goquery.Document
	url  string
	html string

	textOnce sync.Once
	text     string
}

// NewPage parses rendered HTML into a queryable page snapshot.
func NewPage(html, finalURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Page{doc: doc, url: finalURL, html: html}, nil
}

// URL returns the final resolved URL of the page.
func (p *Page) URL() string {
	return p.url
}

// HTML returns the raw rendered markup, used for diagnostic dumps.
func (p *Page) HTML() string {
	return p.html
}

// Find runs a CSS selector against the document. An invalid selector is
// treated as matching nothing; a bad probe must never abort a cascade.
func (p *Page) Find(selector string) (sel *goquery.Selection) {
	defer func() {
		if recover() != nil {
			sel = p.doc.FindNodes()
		}
	}()
	return p.doc.Find(selector)
}

// Text returns the visible body text, computed once and shared across
// all field extractions.
func (p *Page) Text() string {
	p.textOnce.Do(func() {
		body := p.doc.Find("body")
		if body.Length() == 0 {
			p.text = p.doc.Text()
			return
		}
		clone := body.Clone()
		clone.Find("script, style, noscript, template").Remove()
		p.text = clone.Text()
	})
	return p.text
}

// JSONLD returns the parsed embedded structured-data blocks. Blocks that
// fail to parse are skipped; top-level arrays are flattened.
func (p *Page) JSONLD() []map[string]interface{} {
	var blocks []map[string]interface{}
	p.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			blocks = append(blocks, obj)
			return
		}
		var list []map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &list); err == nil {
			blocks = append(blocks, list...)
		}
	})
	return blocks
}
