// Package extract turns a rendered lot page into structured fields.
//
// Every field is extracted by an ordered cascade of strategies: precise
// structural selectors first, free-text regular expressions as a
// recovery net, embedded structured data last. The first strategy whose
// value passes the field's validity predicate wins; a failing probe
// never aborts the cascade.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"catalot/lotworker/config"
	"catalot/lotworker/internal/fetch"
	"catalot/lotworker/internal/lot"
	"catalot/lotworker/logger"
)

// attempt records which strategy produced a raw value. It exists only
// for debug logging while the cascade runs.
type attempt struct {
	field    string
	strategy string
	raw      string
}

// fieldSpec describes one field's cascade: selector candidates with a
// per-element validator, then free-text patterns with a match handler.
type fieldSpec struct {
	name      string
	selectors []string
	fromNode  func(*goquery.Selection) (string, bool)
	patterns  []*regexp.Regexp
	fromMatch func([]string) (string, bool)
}

// Extractor runs the per-field strategy cascades. It is a pure read
// over a page snapshot; extracting the same page twice yields the same
// record.
type Extractor struct {
	assetDomain string
	imageLimit  int
	now         func() time.Time
	log         *logger.Logger
}

// New creates an extractor from the configuration.
func New(cfg config.Config) *Extractor {
	return &Extractor{
		assetDomain: cfg.AssetDomain,
		imageLimit:  cfg.ImageLimit,
		now:         time.Now,
		log:         logger.ForAssembler(),
	}
}

// Extract assembles every field from the page. The body text is read
// once and shared across all cascades.
func (e *Extractor) Extract(page *fetch.Page) *lot.Record {
	text := page.Text()

	rec := &lot.Record{
		Title:        e.cascade(page, text, titleSpec),
		Images:       e.images(page),
		SellerName:   e.cascade(page, text, sellerSpec),
		CurrentPrice: e.cascade(page, text, priceSpec),
		ShippingCost: e.cascade(page, text, shippingSpec),
		EndDate:      e.endDate(page, text),
	}

	if n, ok := e.bottles(text); ok {
		rec.BottlesCount = n
	}

	// Structured metadata is layout-independent; it fills whatever the
	// structural and text strategies left empty.
	e.fillFromStructuredData(page, rec)

	return rec
}

func (e *Extractor) cascade(page *fetch.Page, text string, spec fieldSpec) string {
	for _, sel := range spec.selectors {
		found := ""
		page.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v, ok := spec.fromNode(s); ok {
				found = v
				return false
			}
			return true
		})
		if found != "" {
			e.logAttempt(attempt{field: spec.name, strategy: "selector:" + sel, raw: found})
			return found
		}
	}

	for _, re := range spec.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := spec.fromMatch(m); ok {
			e.logAttempt(attempt{field: spec.name, strategy: "regex:" + re.String(), raw: v})
			return v
		}
	}

	return ""
}

func (e *Extractor) logAttempt(a attempt) {
	e.log.Debug().
		Str("field", a.field).
		Str("strategy", a.strategy).
		Str("value", truncate(a.raw, 60)).
		Msg("Field extracted")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// firstLine returns the trimmed first line of s.
func firstLine(s string) string {
	return strings.TrimSpace(strings.SplitN(s, "\n", 2)[0])
}

var (
	priceNarrowRe = regexp.MustCompile(`[€$£]\s*[\d,]+(?:\.\d{2})?`)
	numberRe      = regexp.MustCompile(`[\d,]+(?:\.\d{2})?`)
)

func containsCurrency(s string) bool {
	return strings.ContainsAny(s, "€$£")
}

// titleSpec: most-specific test ids first, bare h1 is the generic
// fallback the site is unlikely to drop.
var titleSpec = fieldSpec{
	name: "title",
	selectors: []string{
		"h1",
		`[data-testid*="title"]`,
		".lot-title",
		"main h1",
	},
	fromNode: func(s *goquery.Selection) (string, bool) {
		t := strings.TrimSpace(s.Text())
		return t, utf8.RuneCountInString(t) > 5
	},
}

var sellerRe = regexp.MustCompile(`(?i)Sold by\s+([^\n]+)`)

var sellerSpec = fieldSpec{
	name: "seller",
	selectors: []string{
		`a[href*="/u/"] h2`,
		`a[href*="/u/"] span`,
		`[data-testid*="seller"] a`,
		".seller-name",
	},
	fromNode: func(s *goquery.Selection) (string, bool) {
		t := strings.TrimSpace(s.Text())
		n := utf8.RuneCountInString(t)
		if n <= 2 || n >= 100 {
			return "", false
		}
		t = cleanSellerName(t)
		return t, t != ""
	},
	patterns: []*regexp.Regexp{sellerRe},
	fromMatch: func(m []string) (string, bool) {
		seller := firstLine(m[1])
		return seller, seller != "" && utf8.RuneCountInString(seller) < 100
	},
}

// cleanSellerName strips the UI labels that surround the seller name
// and keeps only the first text line.
func cleanSellerName(t string) string {
	t = strings.ReplaceAll(t, "Sold by", "")
	t = strings.ReplaceAll(t, "Follow", "")
	return firstLine(t)
}

var priceSpec = fieldSpec{
	name: "price",
	selectors: []string{
		`[data-testid*="bid"]`,
		`[data-testid*="price"]`,
		".current-bid",
		`span[class*="price"]`,
		`div[class*="bid"]`,
	},
	fromNode: func(s *goquery.Selection) (string, bool) {
		t := strings.TrimSpace(s.Text())
		if t == "" || !containsCurrency(t) {
			return "", false
		}
		// Narrow to currency+amount when the element carries extra text
		if narrow := priceNarrowRe.FindString(t); narrow != "" {
			return strings.TrimSpace(narrow), true
		}
		return t, true
	},
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)Current bid[:\s]+([€$£]\s*[\d,]+(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)Price[:\s]+([€$£]\s*[\d,]+(?:\.\d{2})?)`),
		regexp.MustCompile(`([€$£]\s*[\d,]+(?:\.\d{2})?)`),
	},
	fromMatch: func(m []string) (string, bool) {
		p := strings.TrimSpace(m[1])
		return p, p != ""
	},
}

var shippingSpec = fieldSpec{
	name: "shipping",
	selectors: []string{
		`[data-testid*="shipping"]`,
		".shipping-cost",
		`span[class*="shipping"]`,
	},
	fromNode: func(s *goquery.Selection) (string, bool) {
		t := strings.TrimSpace(s.Text())
		if t == "" {
			return "", false
		}
		if !containsCurrency(t) && !strings.Contains(strings.ToLower(t), "free") {
			return "", false
		}
		return NormalizeShipping(t), true
	},
	patterns: []*regexp.Regexp{
		regexp.MustCompile(`(?i)Shipping[:\s]+([€$£]\s*[\d,]+(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)Delivery[:\s]+([€$£]\s*[\d,]+(?:\.\d{2})?)`),
		regexp.MustCompile(`(?i)Shipping[:\s]+(Free|free)`),
		regexp.MustCompile(`(?i)Free shipping`),
	},
	fromMatch: func(m []string) (string, bool) {
		return NormalizeShipping(m[0]), true
	},
}

// NormalizeShipping reduces a shipping phrase to a plain numeric string.
// "Free shipping" in any casing becomes "0"; otherwise the first number
// is kept with thousands separators stripped.
func NormalizeShipping(text string) string {
	if text == "" {
		return "0"
	}
	if strings.Contains(strings.ToLower(text), "free") {
		return "0"
	}
	if m := numberRe.FindString(text); m != "" {
		return strings.ReplaceAll(m, ",", "")
	}
	return "0"
}

var bottlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*(?:x\s*)?bottle[s]?`),
	regexp.MustCompile(`(?i)(\d+)\s*x\s*0[.,]\d+\s*[lL]`),
	regexp.MustCompile(`(?i)Quantity[:\s]+(\d+)`),
}

// bottles parses the lot's bottle count from the page text.
func (e *Extractor) bottles(text string) (int, bool) {
	for _, re := range bottlePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 0 {
			continue
		}
		e.logAttempt(attempt{field: "bottles", strategy: "regex:" + re.String(), raw: m[1]})
		return n, true
	}
	return 0, false
}
