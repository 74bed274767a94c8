package helpers

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	neturl "net/url"
	"slices"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}

	// HTTP client with timeout
	client = &http.Client{
		Timeout: 30 * time.Second,
	}
)

// blockStatuses are the status codes the site's bot protection answers with.
var blockStatuses = []int{http.StatusForbidden, http.StatusTooManyRequests}

// IsBlockStatus reports whether status looks like an anti-bot denial.
func IsBlockStatus(status int) bool {
	return slices.Contains(blockStatuses, status)
}

// RandomUserAgent returns a realistic browser user agent.
func RandomUserAgent() string {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))
	return userAgents[rnd.Intn(len(userAgents))]
}

// NewClient returns an HTTP client, optionally routed through proxyURL.
// An unparseable proxy URL falls back to a direct client.
func NewClient(proxyURL string) *http.Client {
	c := &http.Client{Timeout: 30 * time.Second}
	if proxyURL != "" {
		if u, err := neturl.Parse(proxyURL); err == nil {
			c.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
		}
	}
	return c
}

// FetchWithRandomHeaders sends an HTTP GET request with randomized
// browser-like headers and returns the decoded UTF-8 body, the status
// code and the final URL after redirects.
func FetchWithRandomHeaders(url string) ([]byte, int, string, error) {
	return FetchWithClient(client, url)
}

// FetchWithClient is FetchWithRandomHeaders over a caller-supplied
// client, used when requests must go through a proxy.
func FetchWithClient(httpClient *http.Client, url string) ([]byte, int, string, error) {
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set browser-like headers
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("Referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	// Block statuses still carry a body (the challenge page); return it so
	// the caller can decide what to do with the status.
	bodyBytes, err := readBody(resp)
	if err != nil {
		return nil, resp.StatusCode, finalURL, fmt.Errorf("failed to read response body: %w", err)
	}

	utf8Body, err := toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, resp.StatusCode, finalURL, err
	}

	return utf8Body, resp.StatusCode, finalURL, nil
}

// readBody reads and decompresses a response body.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	default:
		reader = resp.Body
	}
	return io.ReadAll(reader)
}

// toUTF8 converts a body to UTF-8 based on the Content-Type header and
// the body content itself.
func toUTF8(body []byte, contentType string) ([]byte, error) {
	encoding, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" || name == "UTF-8" {
		return body, nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(body))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return buf.Bytes(), nil
}
