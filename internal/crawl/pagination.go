package crawl

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"catalot/lotworker/internal/fetch"
)

// lotURLSelectors are tried in order; the first selector that yields at
// least one link wins. The bare href fallback at the end catches layout
// revisions that rename every container class.
var lotURLSelectors = []string{
	`[data-testid^="lot-card-container-"] a[href*="/l/"]`,
	`article.c-lot-card__container a[href*="/l/"]`,
	`a.c-lot-card[href*="/en/l/"]`,
	`[data-sentry-component="ListingLotsWrapper"] a[href*="/en/l/"]`,
	`a[href*="/en/l/"]`,
}

// discoverPageCount reads the pagination widget and returns the highest
// page number it advertises. A missing or unreadable widget means a
// single page.
func discoverPageCount(page *fetch.Page) int {
	max := 1
	page.Find(`nav.c-pagination__container [data-testid="page"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		// Ellipsis placeholders sit between numbered buttons
		n, err := strconv.Atoi(text)
		if err != nil {
			return
		}
		if n > max {
			max = n
		}
	})
	return max
}

// indexPageURL returns the category URL with its page query parameter
// set to n, preserving any existing filters.
func indexPageURL(categoryURL string, n int) (string, error) {
	u, err := url.Parse(categoryURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// extractLotURLs pulls every lot link from an index page, resolved to
// absolute form with tracking query strings removed. Order follows
// document order of the first matching selector; duplicates within the
// page are dropped.
func extractLotURLs(page *fetch.Page, baseURL string) []string {
	for _, selector := range lotURLSelectors {
		links := page.Find(selector)
		if links.Length() == 0 {
			continue
		}
		var out []string
		seen := make(map[string]struct{})
		links.Each(func(_ int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			u := normalizeLotURL(href, baseURL)
			if u == "" {
				return
			}
			if _, dup := seen[u]; dup {
				return
			}
			seen[u] = struct{}{}
			out = append(out, u)
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// normalizeLotURL resolves href against baseURL and strips its query
// string and fragment. Returns empty when the href is not a lot link.
func normalizeLotURL(href, baseURL string) string {
	href = strings.TrimSpace(href)
	if href == "" || !strings.Contains(href, "/l/") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !ref.IsAbs() {
		base, err := url.Parse(baseURL)
		if err != nil {
			return ""
		}
		ref = base.ResolveReference(ref)
	}
	ref.RawQuery = ""
	ref.Fragment = ""
	return ref.String()
}
