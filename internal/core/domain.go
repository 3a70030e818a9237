package core

// Receipt is one persisted transaction record extracted from one image.
// The ID is assigned by the persistence layer, never derived from content.
type Receipt struct {
	ID       int64   `json:"id"`
	Store    string  `json:"store"`
	Genre    string  `json:"genre"`
	Datetime string  `json:"datetime"` // ISO 8601 with seconds precision
	Total    float64 `json:"total"`
}

// LineItem is one purchased item belonging to a Receipt. Price may be
// negative for discounts.
type LineItem struct {
	ID        int64   `json:"id"`
	ReceiptID int64   `json:"receipt_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
}

// GenreUncategorized is stored when the extraction step returns no genre.
// Genre is a soft inference, so a missing genre never fails validation.
const GenreUncategorized = "uncategorized"

// ExtractionResult is the raw candidate structure returned by the extraction
// client, before validation. Fields are pointers so that a key absent from the
// model's JSON is distinguishable from a zero value.
type ExtractionResult struct {
	Store    *string         `json:"store"`
	Genre    *string         `json:"genre"`
	Datetime *string         `json:"datetime"`
	Total    *float64        `json:"total"`
	Items    []ExtractedItem `json:"items"`
}

// ExtractedItem is one line item as reported by the extraction service.
type ExtractedItem struct {
	Name  *string  `json:"name"`
	Price *float64 `json:"price"`
}
