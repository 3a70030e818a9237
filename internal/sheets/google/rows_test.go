package google

import (
	"testing"

	"kanri/internal/core"
	ports "kanri/internal/sheets"
	"kanri/internal/storage"
)

func testSnapshot() ports.Snapshot {
	return ports.Snapshot{
		Receipts: []core.Receipt{
			{ID: 1, Store: "スーパーマルエツ", Genre: "食料品", Datetime: "2024-05-01T12:30:00", Total: 1500},
			{ID: 2, Store: "セブンイレブン", Genre: "uncategorized", Datetime: "2024-05-05T09:00:00", Total: 800},
		},
		Items: []core.LineItem{
			{ID: 1, ReceiptID: 1, Name: "牛乳", Price: 250},
			{ID: 2, ReceiptID: 2, Name: "おにぎり", Price: 150},
		},
		Stores: []storage.StoreSummary{
			{Store: "スーパーマルエツ", Total: 1500, Count: 1},
		},
		Months: []storage.MonthSummary{
			{Month: "2024-05", Total: 2300},
		},
		Weekdays: []storage.WeekdaySummary{
			{Weekday: "Wednesday", Total: 1500, Count: 1},
		},
	}
}

func TestReceiptRows(t *testing.T) {
	rows := receiptRows(testSnapshot())
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][1] != "Store" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "スーパーマルエツ" || rows[1][4] != 1500.0 {
		t.Errorf("unexpected first receipt row: %v", rows[1])
	}
}

func TestItemRowsJoinStoreName(t *testing.T) {
	rows := itemRows(testSnapshot())
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][2] != "スーパーマルエツ" {
		t.Errorf("expected item row joined with store name, got %v", rows[1])
	}
	if rows[2][2] != "セブンイレブン" {
		t.Errorf("expected second item joined with its own receipt, got %v", rows[2])
	}
}

func TestSummaryRows(t *testing.T) {
	snap := testSnapshot()

	if rows := storeRows(snap); len(rows) != 2 || rows[1][0] != "スーパーマルエツ" {
		t.Errorf("unexpected store rows: %v", rows)
	}
	if rows := monthRows(snap); len(rows) != 2 || rows[1][0] != "2024-05" {
		t.Errorf("unexpected month rows: %v", rows)
	}
	if rows := weekdayRows(snap); len(rows) != 2 || rows[1][0] != "Wednesday" {
		t.Errorf("unexpected weekday rows: %v", rows)
	}
	// Empty sections still get a header row.
	if rows := genreRows(snap); len(rows) != 1 {
		t.Errorf("expected header-only genre rows, got %v", rows)
	}
}
