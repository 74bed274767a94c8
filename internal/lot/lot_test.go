package lot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsable(t *testing.T) {
	assert.False(t, (&Record{}).Usable())
	assert.False(t, (&Record{CurrentPrice: "€50"}).Usable())
	assert.True(t, (&Record{Title: "Six bottles of Burgundy"}).Usable())
}

func TestMainImage(t *testing.T) {
	assert.Empty(t, (&Record{}).MainImage())

	r := &Record{Images: []string{"https://assets.catawiki.com/a.jpg", "https://assets.catawiki.com/b.jpg"}}
	assert.Equal(t, "https://assets.catawiki.com/a.jpg", r.MainImage())
}

func TestRecordJSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(&Record{Title: "Lot", URL: "https://www.catawiki.com/en/l/1-lot"})
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.NotContains(t, m, "images")
	assert.NotContains(t, m, "bottles_count")
	assert.NotContains(t, m, "end_date")
	assert.Contains(t, m, "title")
	assert.Contains(t, m, "url")
}
