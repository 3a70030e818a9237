package memory

import (
	"context"
	"errors"
	"testing"

	"kanri/internal/core"
	"kanri/internal/sheets"
)

func TestExportRecordsSnapshots(t *testing.T) {
	s := New()
	snap := sheets.Snapshot{
		Receipts: []core.Receipt{{ID: 1, Store: "ローソン", Total: 420}},
	}

	if err := s.Export(context.Background(), snap); err != nil {
		t.Fatalf("export: %v", err)
	}

	got := s.Snapshots()
	if len(got) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(got))
	}
	if got[0].Receipts[0].Store != "ローソン" {
		t.Errorf("unexpected snapshot contents: %+v", got[0])
	}
}

func TestExportFailureInjection(t *testing.T) {
	s := New()
	boom := errors.New("quota exceeded")
	s.Fail(boom)

	if err := s.Export(context.Background(), sheets.Snapshot{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if len(s.Snapshots()) != 0 {
		t.Error("failed export must not be recorded")
	}
}
