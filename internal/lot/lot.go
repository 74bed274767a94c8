package lot

import "time"

// Record represents a scraped auction lot
type Record struct {
	Title        string    `json:"title"`
	Images       []string  `json:"images,omitempty"`
	BottlesCount int       `json:"bottles_count,omitempty"`
	SellerName   string    `json:"seller_name,omitempty"`
	CurrentPrice string    `json:"current_price,omitempty"`
	ShippingCost string    `json:"shipping_cost,omitempty"`
	EndDate      string    `json:"end_date,omitempty"`
	URL          string    `json:"url"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// Usable reports whether extraction succeeded for this record.
// A record without a title is never published or persisted; every
// other field is best effort and may be empty.
func (r *Record) Usable() bool {
	return r.Title != ""
}

// MainImage returns the first product image, if any. Spreadsheet
// decorators downstream wrap this in a presentation formula, so the
// images slice must keep first-seen order.
func (r *Record) MainImage() string {
	if len(r.Images) == 0 {
		return ""
	}
	return r.Images[0]
}
