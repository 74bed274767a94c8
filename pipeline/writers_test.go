package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalot/lotworker/internal/lot"
)

func sampleRecords() []lot.Record {
	return []lot.Record{
		{
			Title:        "Château Margaux 2015",
			Images:       []string{"https://assets.catawiki.com/1.jpg", "https://assets.catawiki.com/2.jpg"},
			BottlesCount: 6,
			SellerName:   "Jane's Wines",
			CurrentPrice: "€1,250",
			ShippingCost: "12.50",
			EndDate:      "2026-03-12 11:22:00",
			URL:          "https://www.catawiki.com/en/l/1-margaux",
			ScrapedAt:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			Title:     "Islay Single Malt 1998",
			URL:       "https://www.catawiki.com/en/l/2-islay",
			ScrapedAt: time.Date(2026, 3, 10, 12, 1, 0, 0, time.UTC),
		},
	}
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lots.csv")

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecords()))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "Château Margaux 2015", rows[1][0])
	assert.Equal(t, "6", rows[1][1])
	assert.Equal(t, "https://assets.catawiki.com/1.jpg", rows[1][6])
	assert.Equal(t, "https://assets.catawiki.com/1.jpg|https://assets.catawiki.com/2.jpg", rows[1][7])
	assert.Equal(t, "2", rows[1][8])
	assert.Equal(t, "0", rows[2][8])
}

func TestJSONWriterProducesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lots.jsonl")

	w, err := NewJSONWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecords()))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec lot.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "Château Margaux 2015", rec.Title)
	assert.Len(t, rec.Images, 2)
}

func TestDualWriter(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "lots.csv")
	jsonPath := filepath.Join(dir, "out", "lots.jsonl")

	w, err := NewDualWriter(csvPath, jsonPath)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleRecords()))
	require.NoError(t, w.Close())

	for _, p := range []string{csvPath, jsonPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}
