package core

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// isoLayout is the single textual timestamp format stored in the database.
const isoLayout = "2006-01-02T15:04:05"

// datetimeLayouts are the extraction timestamp variants we accept. Layouts
// without a seconds component normalize to :00 rather than being rejected.
var datetimeLayouts = []string{
	isoLayout,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// NormalizeDatetime parses an extracted timestamp and reformats it as
// ISO 8601 with seconds precision.
func NormalizeDatetime(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.Format(isoLayout), nil
		}
	}
	return "", &InvalidValueError{Field: "datetime", Reason: fmt.Sprintf("%q is not a recognized date-time", s)}
}

// Validate enforces the required-field contract on an extraction result and
// normalizes it into a Receipt with its line items. The receipt ID is left
// zero; persistence assigns it.
//
// The total is not cross-checked against the item-price sum: extraction may
// report a tax-inclusive total while enumerating tax-exclusive item prices.
// A discrepancy is logged, never corrected.
func Validate(res ExtractionResult) (Receipt, []LineItem, error) {
	if res.Store == nil {
		return Receipt{}, nil, &MissingFieldError{Field: "store"}
	}
	if res.Datetime == nil {
		return Receipt{}, nil, &MissingFieldError{Field: "datetime"}
	}
	if res.Total == nil {
		return Receipt{}, nil, &MissingFieldError{Field: "total"}
	}
	if res.Items == nil {
		return Receipt{}, nil, &MissingFieldError{Field: "items"}
	}

	datetime, err := NormalizeDatetime(*res.Datetime)
	if err != nil {
		return Receipt{}, nil, err
	}

	total := *res.Total
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return Receipt{}, nil, &InvalidValueError{Field: "total", Reason: "must be a finite number"}
	}
	if total < 0 {
		return Receipt{}, nil, &InvalidValueError{Field: "total", Reason: "must be non-negative"}
	}

	genre := GenreUncategorized
	if res.Genre != nil && strings.TrimSpace(*res.Genre) != "" {
		genre = strings.TrimSpace(*res.Genre)
	}

	items := make([]LineItem, 0, len(res.Items))
	var itemSum float64
	for i, it := range res.Items {
		if it.Name == nil {
			return Receipt{}, nil, &InvalidValueError{Field: "items", Reason: fmt.Sprintf("entry %d is missing name", i)}
		}
		if it.Price == nil {
			return Receipt{}, nil, &InvalidValueError{Field: "items", Reason: fmt.Sprintf("entry %d is missing price", i)}
		}
		items = append(items, LineItem{Name: *it.Name, Price: *it.Price})
		itemSum += *it.Price
	}

	if len(items) > 0 && math.Abs(itemSum-total) > 0.005 {
		slog.Warn("Receipt total differs from item-price sum",
			"store", *res.Store,
			"total", total,
			"item_sum", itemSum)
	}

	receipt := Receipt{
		Store:    strings.TrimSpace(*res.Store),
		Genre:    genre,
		Datetime: datetime,
		Total:    total,
	}
	return receipt, items, nil
}
