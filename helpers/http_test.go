package helpers

import (
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithRandomHeaders(t *testing.T) {
	// Create a test server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check that browser-like headers are set
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		assert.NotEmpty(t, r.Header.Get("Referer"))
		assert.Equal(t, "document", r.Header.Get("Sec-Fetch-Dest"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello, World!</body></html>"))
	}))
	defer server.Close()

	body, status, finalURL, err := FetchWithRandomHeaders(server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, server.URL, finalURL)
	assert.Contains(t, string(body), "Hello, World!")
}

func TestFetchWithRandomHeadersGzip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("<html><body>compressed body</body></html>"))
		gz.Close()
	}))
	defer server.Close()

	body, status, _, err := FetchWithRandomHeaders(server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "compressed body")
}

func TestFetchWithRandomHeadersBlockStatusReturnsBody(t *testing.T) {
	// A block response is not an error at this layer; the challenge page
	// body and status code both reach the caller.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html><body>Access denied</body></html>"))
	}))
	defer server.Close()

	body, status, _, err := FetchWithRandomHeaders(server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Contains(t, string(body), "Access denied")
}

func TestFetchWithRandomHeadersFollowsRedirects(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://www.catawiki.com/en/l/1-lot",
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(http.StatusOK, "<html><body>final page</body></html>")
			resp.Request = req
			return resp, nil
		})

	body, status, finalURL, err := FetchWithRandomHeaders("https://www.catawiki.com/en/l/1-lot")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://www.catawiki.com/en/l/1-lot", finalURL)
	assert.Contains(t, string(body), "final page")
}

func TestIsBlockStatus(t *testing.T) {
	assert.True(t, IsBlockStatus(http.StatusForbidden))
	assert.True(t, IsBlockStatus(http.StatusTooManyRequests))
	assert.False(t, IsBlockStatus(http.StatusOK))
	assert.False(t, IsBlockStatus(http.StatusNotFound))
	assert.False(t, IsBlockStatus(http.StatusInternalServerError))
}

func TestRandomUserAgent(t *testing.T) {
	ua := RandomUserAgent()
	assert.Contains(t, ua, "Mozilla/5.0")
}
