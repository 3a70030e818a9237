package google

import (
	ports "kanri/internal/sheets"
)

// Row builders convert a snapshot section into sheet values, header first.

func receiptRows(snap ports.Snapshot) [][]any {
	rows := [][]any{{"ID", "Store", "Genre", "Datetime", "Total"}}
	for _, r := range snap.Receipts {
		rows = append(rows, []any{r.ID, r.Store, r.Genre, r.Datetime, r.Total})
	}
	return rows
}

func itemRows(snap ports.Snapshot) [][]any {
	stores := make(map[int64]string, len(snap.Receipts))
	for _, r := range snap.Receipts {
		stores[r.ID] = r.Store
	}
	rows := [][]any{{"ID", "Receipt ID", "Store", "Name", "Price"}}
	for _, it := range snap.Items {
		rows = append(rows, []any{it.ID, it.ReceiptID, stores[it.ReceiptID], it.Name, it.Price})
	}
	return rows
}

func storeRows(snap ports.Snapshot) [][]any {
	rows := [][]any{{"Store", "Receipts", "Total"}}
	for _, s := range snap.Stores {
		rows = append(rows, []any{s.Store, s.Count, s.Total})
	}
	return rows
}

func genreRows(snap ports.Snapshot) [][]any {
	rows := [][]any{{"Genre", "Receipts", "Total"}}
	for _, g := range snap.Genres {
		rows = append(rows, []any{g.Genre, g.Count, g.Total})
	}
	return rows
}

func monthRows(snap ports.Snapshot) [][]any {
	rows := [][]any{{"Month", "Total"}}
	for _, m := range snap.Months {
		rows = append(rows, []any{m.Month, m.Total})
	}
	return rows
}

func weekdayRows(snap ports.Snapshot) [][]any {
	rows := [][]any{{"Weekday", "Receipts", "Total"}}
	for _, w := range snap.Weekdays {
		rows = append(rows, []any{w.Weekday, w.Count, w.Total})
	}
	return rows
}
