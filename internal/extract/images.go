package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"catalot/lotworker/internal/fetch"
)

// imageSelectors cover the gallery markup variants the site has shipped
// so far; the union of all matches is taken rather than stopping at the
// first selector, because galleries split images across several of them.
var imageSelectors = []string{
	`img[src*="assets.catawiki"]`,
	`main img[src*="catawiki"]`,
	`picture img[src*="catawiki"]`,
	`img[data-testid*="lot-image"]`,
	".image-gallery img",
}

// srcsetURLRe pulls candidate URLs out of a responsive srcset value.
var srcsetURLRe = regexp.MustCompile(`(https?://[^\s,]+)`)

// excludePatterns mark chrome assets that show up inside the product
// markup: country flags, payment brand badges, UI icons.
var excludePatterns = []string{
	"/flags/",
	"/logos/",
	"/icons/",
	"payment",
	"cards/",
	".svg",
	"flag-",
	"badge",
	"visa",
	"mastercard",
	"paypal",
	"apple_pay",
}

var allowedExtensions = []string{".jpg", ".png", ".webp", "@webp"}

// images collects product photo URLs from every selector, filters out
// non-product assets, deduplicates preserving first-seen order and caps
// the list.
func (e *Extractor) images(page *fetch.Page) []string {
	var candidates []string
	for _, sel := range imageSelectors {
		page.Find(sel).Each(func(_ int, img *goquery.Selection) {
			if src, ok := img.Attr("src"); ok {
				candidates = append(candidates, src)
			}
			if srcset, ok := img.Attr("srcset"); ok {
				candidates = append(candidates, srcsetURLRe.FindAllString(srcset, -1)...)
			}
		})
	}

	var kept []string
	for _, u := range candidates {
		if e.IsProductImage(u) {
			kept = append(kept, u)
		}
	}
	return capImages(dedupImages(kept), e.imageLimit)
}

// IsProductImage reports whether url points at an actual lot photo
// rather than a flag, logo, icon or payment-brand asset.
func (e *Extractor) IsProductImage(url string) bool {
	if url == "" || strings.HasPrefix(url, "data:") {
		return false
	}

	lower := strings.ToLower(url)
	for _, pattern := range excludePatterns {
		if strings.Contains(lower, pattern) {
			return false
		}
	}

	if !strings.Contains(url, e.assetDomain) {
		return false
	}
	for _, ext := range allowedExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

// dedupImages removes duplicate URLs preserving first occurrence order.
func dedupImages(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// capImages drops images beyond the limit without reordering.
func capImages(urls []string, limit int) []string {
	if limit > 0 && len(urls) > limit {
		return urls[:limit]
	}
	return urls
}
