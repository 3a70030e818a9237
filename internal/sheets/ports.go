package sheets

import (
	"context"

	"kanri/internal/core"
	"kanri/internal/storage"
)

// Snapshot is a full export of the receipt database: raw rows plus the
// aggregated projections.
type Snapshot struct {
	Receipts []core.Receipt
	Items    []core.LineItem
	Stores   []storage.StoreSummary
	Genres   []storage.GenreSummary
	Months   []storage.MonthSummary
	Weekdays []storage.WeekdaySummary
}

// ReportSink receives a snapshot and writes it somewhere durable.
type ReportSink interface {
	Export(ctx context.Context, snap Snapshot) error
}
