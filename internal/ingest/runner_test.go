package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"kanri/internal/core"
)

type fakeExtractor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (core.ExtractionResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return core.ExtractionResult{}, f.err
	}
	store := "ヤオコー"
	genre := "食料品"
	datetime := "2024-05-01T12:30"
	total := 450.0
	name := "たまご"
	price := 450.0
	return core.ExtractionResult{
		Store:    &store,
		Genre:    &genre,
		Datetime: &datetime,
		Total:    &total,
		Items:    []core.ExtractedItem{{Name: &name, Price: &price}},
	}, nil
}

func (f *fakeExtractor) Close() error { return nil }

type fakeStore struct {
	mu       sync.Mutex
	inserted []core.Receipt
	err      error
	inFlight int
	maxSeen  int
}

func (s *fakeStore) InsertReceipt(_ context.Context, receipt core.Receipt, _ []core.LineItem) (int64, error) {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxSeen {
		s.maxSeen = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, receipt)
	return int64(len(s.inserted)), nil
}

func writeTestJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunFolder_FailureIsolation(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		name := fmt.Sprintf("receipt_%d.jpg", i)
		if i == 3 {
			// Corrupt image: carries the extension but is not decodable.
			if err := os.WriteFile(filepath.Join(dir, name), []byte("broken"), 0644); err != nil {
				t.Fatal(err)
			}
			continue
		}
		writeTestJPEG(t, filepath.Join(dir, name))
	}

	store := &fakeStore{}
	runner := NewRunner(store, &fakeExtractor{}, Options{ArchiveDir: "archived"})

	report, err := runner.RunFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("RunFolder error: %v", err)
	}

	if report.Succeeded != 4 || report.Failed != 1 {
		t.Fatalf("report = %d succeeded / %d failed, want 4/1", report.Succeeded, report.Failed)
	}

	// The corrupt image stays put for inspection; the rest are archived.
	if _, err := os.Stat(filepath.Join(dir, "receipt_3.jpg")); err != nil {
		t.Errorf("failed image was moved: %v", err)
	}
	for _, i := range []int{1, 2, 4, 5} {
		name := fmt.Sprintf("receipt_%d.jpg", i)
		if _, err := os.Stat(filepath.Join(dir, "archived", name)); err != nil {
			t.Errorf("successful image %s not archived: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("successful image %s still in source folder", name)
		}
	}

	if len(store.inserted) != 4 {
		t.Errorf("inserted receipts = %d, want 4", len(store.inserted))
	}

	// Report order follows source order.
	if report.Results[2].Image != "receipt_3.jpg" || report.Results[2].Status != core.StatusFailed {
		t.Errorf("results[2] = %+v, want failed receipt_3.jpg", report.Results[2])
	}
}

func TestRunFolder_EmptyFolderAborts(t *testing.T) {
	runner := NewRunner(&fakeStore{}, &fakeExtractor{}, Options{})
	_, err := runner.RunFolder(context.Background(), t.TempDir())
	if !errors.Is(err, core.ErrNoImagesFound) {
		t.Errorf("RunFolder error = %v, want ErrNoImagesFound", err)
	}
}

func TestRunFolder_PersistenceSerialized(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 6; i++ {
		writeTestJPEG(t, filepath.Join(dir, fmt.Sprintf("r%d.jpg", i)))
	}

	store := &fakeStore{}
	runner := NewRunner(store, &fakeExtractor{}, Options{Workers: 4})

	report, err := runner.RunFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("RunFolder error: %v", err)
	}
	if report.Succeeded != 6 {
		t.Fatalf("succeeded = %d, want 6", report.Succeeded)
	}
	if store.maxSeen > 1 {
		t.Errorf("observed %d concurrent inserts, persistence must be serialized", store.maxSeen)
	}
}

func TestRunFolder_PersistenceFailureDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	writeTestJPEG(t, filepath.Join(dir, "a.jpg"))
	writeTestJPEG(t, filepath.Join(dir, "b.jpg"))

	store := &fakeStore{err: fmt.Errorf("%w: disk full", core.ErrPersistenceFailed)}
	runner := NewRunner(store, &fakeExtractor{}, Options{})

	report, err := runner.RunFolder(context.Background(), dir)
	if err != nil {
		t.Fatalf("RunFolder error: %v", err)
	}
	if report.Failed != 2 || report.Succeeded != 0 {
		t.Fatalf("report = %d/%d, want 0 succeeded / 2 failed", report.Succeeded, report.Failed)
	}
	for _, res := range report.Results {
		if res.Failure != core.FailurePersistence {
			t.Errorf("failure kind = %q, want %q", res.Failure, core.FailurePersistence)
		}
	}
	// Nothing archived on failure.
	if _, err := os.Stat(filepath.Join(dir, "a.jpg")); err != nil {
		t.Errorf("failed image was moved: %v", err)
	}
}

func TestRunBuffer(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 20)), nil); err != nil {
			t.Fatal(err)
		}

		store := &fakeStore{}
		runner := NewRunner(store, &fakeExtractor{}, Options{})

		report, err := runner.RunBuffer(context.Background(), "attachment.jpg", buf.Bytes())
		if err != nil {
			t.Fatalf("RunBuffer error: %v", err)
		}
		if report.Succeeded != 1 || report.Failed != 0 {
			t.Fatalf("report = %d/%d, want 1/0", report.Succeeded, report.Failed)
		}
		if report.Results[0].ReceiptID != 1 {
			t.Errorf("receipt_id = %d, want 1", report.Results[0].ReceiptID)
		}
	})

	t.Run("not a receipt is its own failure kind", func(t *testing.T) {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 20, 20)), nil); err != nil {
			t.Fatal(err)
		}

		runner := NewRunner(&fakeStore{}, &fakeExtractor{err: core.ErrNotAReceipt}, Options{})
		report, err := runner.RunBuffer(context.Background(), "cat.jpg", buf.Bytes())
		if err != nil {
			t.Fatalf("RunBuffer error: %v", err)
		}
		if report.Failed != 1 {
			t.Fatalf("failed = %d, want 1", report.Failed)
		}
		if got := report.Results[0].Failure; got != core.FailureNotAReceipt {
			t.Errorf("failure kind = %q, want %q", got, core.FailureNotAReceipt)
		}
	})

	t.Run("undecodable buffer is a per-item failure", func(t *testing.T) {
		runner := NewRunner(&fakeStore{}, &fakeExtractor{}, Options{})
		report, err := runner.RunBuffer(context.Background(), "junk.bin", []byte("junk"))
		if err != nil {
			t.Fatalf("RunBuffer error: %v", err)
		}
		if report.Failed != 1 {
			t.Errorf("failed = %d, want 1", report.Failed)
		}
	})
}
