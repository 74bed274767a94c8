package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRobotsCheckerDisabledAllowsEverything(t *testing.T) {
	r := NewRobotsChecker(false)
	assert.True(t, r.IsAllowed("TestAgent", "https://example.com/private"))
}

func TestRobotsCheckerRespectsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer server.Close()

	r := NewRobotsChecker(true)
	assert.True(t, r.IsAllowed("TestAgent", server.URL+"/en/l/1-lot"))
	assert.False(t, r.IsAllowed("TestAgent", server.URL+"/private/page"))
}

func TestRobotsCheckerAllowsOnFetchFailure(t *testing.T) {
	r := NewRobotsChecker(true)
	// Unreachable host; rules cannot be fetched so the crawl proceeds
	assert.True(t, r.IsAllowed("TestAgent", "http://127.0.0.1:1/page"))
}
