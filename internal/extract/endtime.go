package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"catalot/lotworker/internal/fetch"
)

// endTimeFormat is the absolute timestamp format downstream consumers
// expect for a computed auction close.
const endTimeFormat = "2006-01-02 15:04:05"

// countdownSelectors are scanned when the structured bidding counter is
// absent; elements are scored by how many distinct time units they name.
var countdownSelectors = []string{
	`[data-testid*="countdown"]`,
	`[class*="countdown"]`,
	`[class*="timer"]`,
	`[data-testid*="time"]`,
	`[data-testid*="end"]`,
	".auction-end",
	"time",
}

// Unit tokens the site renders in its supported locales.
var (
	dayTokens    = []string{"day", "день", "дн"}
	hourTokens   = []string{"hour", "час", "hr"}
	minuteTokens = []string{"min", "мин", "мін"}
)

var endTimePatterns = []*regexp.Regexp{
	// days + hours + minutes
	regexp.MustCompile(`(?i)(\d+\s+(?:day|days|день|дня|дней|дн)[^\d]*\d+\s+(?:hour|hours|час|часа|часов|ч)[^\d]*\d+\s+(?:min|minute|minutes|мин|минут|м))`),
	// days + hours
	regexp.MustCompile(`(?i)(\d+\s+(?:day|days|день|дня|дней|дн)[^\d]*\d+\s+(?:hour|hours|час|часа|часов|ч))`),
	// hours + minutes
	regexp.MustCompile(`(?i)(\d+\s+(?:hour|hours|час|часа|часов|ч)[^\d]*\d+\s+(?:min|minute|minutes|мин|минут|м))`),
	regexp.MustCompile(`(?i)Time left[:\s]+([^\n]+)`),
	regexp.MustCompile(`(?i)Auction ends[:\s]+([^\n]+)`),
	regexp.MustCompile(`(?i)Closing[:\s]+([^\n]+)`),
	regexp.MustCompile(`(?i)End[s]?[:\s]+([^\n]+)`),
}

// endDate extracts the auction close. The structured counter is
// authoritative when present: its remaining time is summed and added to
// the current clock, producing an absolute timestamp. Without it the
// best human-readable countdown text found on the page is kept as-is.
func (e *Extractor) endDate(page *fetch.Page, text string) string {
	if v := e.endDateFromWidget(page); v != "" {
		e.logAttempt(attempt{field: "end_date", strategy: "widget", raw: v})
		return v
	}
	if v := e.endDateFromScan(page); v != "" {
		e.logAttempt(attempt{field: "end_date", strategy: "scan", raw: v})
		return v
	}
	if v := endDateFromText(text); v != "" {
		e.logAttempt(attempt{field: "end_date", strategy: "regex", raw: v})
		return v
	}
	return ""
}

// endDateFromWidget reads the bidding counter's animated number blocks,
// pairing each numeric value with its adjacent unit label.
func (e *Extractor) endDateFromWidget(page *fetch.Page) string {
	counter := page.Find(`[data-testid="lot-bidding-counter"]`)
	if counter.Length() == 0 {
		return ""
	}

	var days, hours, minutes int
	parsed := false

	counter.Find(`div[class*="AnimatedNumber_container"]`).Each(func(_ int, container *goquery.Selection) {
		number := strings.TrimSpace(container.Find(`div.tw\:text-h4`).First().Text())
		label := strings.ToLower(strings.TrimSpace(container.Find(`div.tw\:text-label-s`).First().Text()))
		if number == "" || label == "" {
			return
		}
		value, err := strconv.Atoi(number)
		if err != nil {
			return
		}
		switch {
		case strings.Contains(label, "day"):
			days = value
			parsed = true
		case strings.Contains(label, "hour"):
			hours = value
			parsed = true
		case strings.Contains(label, "min"):
			minutes = value
			parsed = true
		}
	})

	if !parsed {
		return ""
	}

	remaining := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute
	return e.now().Add(remaining).Format(endTimeFormat)
}

// endDateFromScan looks for the countdown rendered as plain text,
// preferring the element naming the most distinct time units. A full
// day+hour+minute match wins immediately.
func (e *Extractor) endDateFromScan(page *fetch.Page) string {
	best := ""
	maxParts := 0

	for _, sel := range countdownSelectors {
		result := ""
		page.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			lower := strings.ToLower(text)

			parts := 0
			if containsAny(lower, dayTokens) {
				parts++
			}
			if containsAny(lower, hourTokens) {
				parts++
			}
			if containsAny(lower, minuteTokens) {
				parts++
			}

			if parts >= 3 {
				result = text
				return false
			}
			if parts > maxParts && len(text) < 200 {
				maxParts = parts
				best = text
			}
			if attr, ok := s.Attr("datetime"); ok && attr != "" && best == "" {
				best = attr
			}
			return true
		})
		if result != "" {
			return result
		}
	}

	return best
}

// endDateFromText runs the countdown phrase patterns over the page
// text, keeping only plausible-length first lines.
func endDateFromText(text string) string {
	for _, re := range endTimePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := m[0]
		if len(m) > 1 && m[1] != "" {
			candidate = m[1]
		}
		candidate = firstLine(candidate)
		if n := utf8.RuneCountInString(candidate); n > 5 && n < 150 {
			return candidate
		}
	}
	return ""
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
