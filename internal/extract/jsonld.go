package extract

import (
	"catalot/lotworker/internal/fetch"
	"catalot/lotworker/internal/lot"
)

// fillFromStructuredData reads the page's embedded JSON-LD blocks and
// fills title and images only when the earlier strategies left them
// empty. Structured metadata survives visual redesigns, which makes it
// the recovery path of last resort for those two fields.
func (e *Extractor) fillFromStructuredData(page *fetch.Page, rec *lot.Record) {
	if rec.Title != "" && len(rec.Images) > 0 {
		return
	}

	for _, block := range page.JSONLD() {
		if rec.Title == "" {
			if name, ok := block["name"].(string); ok && name != "" {
				rec.Title = name
				e.logAttempt(attempt{field: "title", strategy: "jsonld", raw: name})
			}
		}
		if len(rec.Images) == 0 {
			if urls := structuredImages(block["image"]); len(urls) > 0 {
				rec.Images = capImages(dedupImages(urls), e.imageLimit)
				e.logAttempt(attempt{field: "images", strategy: "jsonld", raw: urls[0]})
			}
		}
	}
}

// structuredImages accepts both the singular and the list form of the
// JSON-LD image property.
func structuredImages(v interface{}) []string {
	switch img := v.(type) {
	case string:
		if img == "" {
			return nil
		}
		return []string{img}
	case []interface{}:
		var urls []string
		for _, item := range img {
			if s, ok := item.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
		return urls
	default:
		return nil
	}
}
