package storage

import (
	"context"
	"fmt"
)

// Report projections over the two tables. These are the ordinary SQL reads
// the report layer performs; the ingestion core only guarantees the schema
// and its invariants.

type StoreSummary struct {
	Store string  `json:"store"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type GenreSummary struct {
	Genre string  `json:"genre"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type MonthSummary struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
}

type WeekdaySummary struct {
	Weekday string  `json:"weekday"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
}

var weekdayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// StoreSummaries aggregates total spend and receipt count per store.
func (r *Repository) StoreSummaries(ctx context.Context) ([]StoreSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT store, SUM(total), COUNT(*) FROM receipts GROUP BY store ORDER BY store`)
	if err != nil {
		return nil, fmt.Errorf("store summaries: %w", err)
	}
	defer rows.Close()

	var out []StoreSummary
	for rows.Next() {
		var s StoreSummary
		if err := rows.Scan(&s.Store, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("scan store summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GenreSummaries aggregates total spend and receipt count per genre.
func (r *Repository) GenreSummaries(ctx context.Context) ([]GenreSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT genre, SUM(total), COUNT(*) FROM receipts GROUP BY genre ORDER BY genre`)
	if err != nil {
		return nil, fmt.Errorf("genre summaries: %w", err)
	}
	defer rows.Close()

	var out []GenreSummary
	for rows.Next() {
		var s GenreSummary
		if err := rows.Scan(&s.Genre, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("scan genre summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MonthSummaries aggregates total spend per calendar month. The datetime
// column stores ISO 8601 text, so the month is its YYYY-MM prefix.
func (r *Repository) MonthSummaries(ctx context.Context) ([]MonthSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(datetime, 1, 7), SUM(total) FROM receipts GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("month summaries: %w", err)
	}
	defer rows.Close()

	var out []MonthSummary
	for rows.Next() {
		var s MonthSummary
		if err := rows.Scan(&s.Month, &s.Total); err != nil {
			return nil, fmt.Errorf("scan month summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// WeekdaySummaries aggregates total spend and receipt count per weekday.
func (r *Repository) WeekdaySummaries(ctx context.Context) ([]WeekdaySummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT strftime('%w', datetime), SUM(total), COUNT(*) FROM receipts GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("weekday summaries: %w", err)
	}
	defer rows.Close()

	var out []WeekdaySummary
	for rows.Next() {
		var s WeekdaySummary
		var dayIndex int
		if err := rows.Scan(&dayIndex, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("scan weekday summary: %w", err)
		}
		if dayIndex >= 0 && dayIndex < len(weekdayNames) {
			s.Weekday = weekdayNames[dayIndex]
		} else {
			s.Weekday = "Unknown"
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
