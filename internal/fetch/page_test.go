package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageFindInvalidSelectorReturnsEmpty(t *testing.T) {
	page, err := NewPage(`<html><body><h1>title</h1></body></html>`, "https://example.com")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		sel := page.Find(`div[class*=broken`)
		assert.Equal(t, 0, sel.Length())
	})
}

func TestPageTextStripsScripts(t *testing.T) {
	page, err := NewPage(`<html><body>
		<p>visible text</p>
		<script>var hidden = "script text";</script>
		<style>.x { color: red }</style>
		<noscript>enable js</noscript>
	</body></html>`, "https://example.com")
	require.NoError(t, err)

	text := page.Text()
	assert.Contains(t, text, "visible text")
	assert.NotContains(t, text, "script text")
	assert.NotContains(t, text, "color: red")
	assert.NotContains(t, text, "enable js")
}

func TestPageJSONLDObjectAndArray(t *testing.T) {
	page, err := NewPage(`<html><body>
		<script type="application/ld+json">{"@type":"Product","name":"single"}</script>
		<script type="application/ld+json">[{"name":"first"},{"name":"second"}]</script>
		<script type="application/ld+json">not json at all</script>
	</body></html>`, "https://example.com")
	require.NoError(t, err)

	blocks := page.JSONLD()
	require.Len(t, blocks, 3)
	assert.Equal(t, "single", blocks[0]["name"])
	assert.Equal(t, "first", blocks[1]["name"])
	assert.Equal(t, "second", blocks[2]["name"])
}

func TestResultBlocked(t *testing.T) {
	assert.True(t, (&Result{Status: 403}).Blocked())
	assert.True(t, (&Result{Status: 429}).Blocked())
	assert.False(t, (&Result{Status: 200}).Blocked())
	assert.False(t, (&Result{Status: 500}).Blocked())
}
