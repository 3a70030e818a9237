package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"kanri/internal/amqp"
	"kanri/internal/core"
)

type fakeRunner struct {
	calls  int
	report *core.BatchReport
	err    error
}

func (f *fakeRunner) RunBuffer(_ context.Context, name string, _ []byte) (*core.BatchReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	report := &core.BatchReport{}
	report.Add(core.ImageResult{Image: name, Status: core.StatusSucceeded, ReceiptID: 1, Store: "ローソン", Total: 420, ItemCount: 2})
	return report, nil
}

type fakePublisher struct {
	published []*amqp.ScanResultMessage
	err       error
}

func (f *fakePublisher) PublishScanResult(_ context.Context, msg *amqp.ScanResultMessage) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func TestHandleScanRequest(t *testing.T) {
	runner := &fakeRunner{}
	pub := &fakePublisher{}
	w := NewScanWorker(runner, nil, pub)

	msg := amqp.NewScanRequestMessage("req-1", "receipt.jpg", []byte{0xff, 0xd8})
	if err := w.HandleScanRequest(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if runner.calls != 1 {
		t.Errorf("expected 1 pipeline run, got %d", runner.calls)
	}
	if len(pub.published) != 1 {
		t.Fatalf("expected 1 result published, got %d", len(pub.published))
	}
	result := pub.published[0]
	if result.RequestID != "req-1" {
		t.Errorf("result request id = %v, want req-1", result.RequestID)
	}
	if len(result.Chunks) == 0 {
		t.Fatal("expected at least one report chunk")
	}
	if !strings.Contains(result.Chunks[0], "ローソン") {
		t.Errorf("report chunk should contain store name, got %q", result.Chunks[0])
	}
}

func TestHandleScanRequest_LongReportIsChunked(t *testing.T) {
	report := &core.BatchReport{}
	for i := 0; i < 40; i++ {
		report.Add(core.ImageResult{
			Image:     "receipt.jpg",
			Status:    core.StatusSucceeded,
			ReceiptID: int64(i + 1),
			Store:     strings.Repeat("スーパー", 20),
			Total:     1234,
			ItemCount: 5,
		})
	}
	runner := &fakeRunner{report: report}
	pub := &fakePublisher{}
	w := NewScanWorker(runner, nil, pub)

	msg := amqp.NewScanRequestMessage("req-2", "receipt.jpg", []byte{0xff, 0xd8})
	if err := w.HandleScanRequest(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	chunks := pub.published[0].Chunks
	if len(chunks) < 2 {
		t.Fatalf("expected report split into multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > core.ChatMessageLimit {
			t.Errorf("chunk %d has %d runes, limit is %d", i, n, core.ChatMessageLimit)
		}
	}
}

func TestHandleScanRequest_APIKeyOverride(t *testing.T) {
	defaultRunner := &fakeRunner{}
	overrideRunner := &fakeRunner{}
	closed := false
	factory := func(_ context.Context, apiKey string) (BufferRunner, func() error, error) {
		if apiKey != "user-key" {
			t.Errorf("factory got key %q, want user-key", apiKey)
		}
		return overrideRunner, func() error { closed = true; return nil }, nil
	}
	pub := &fakePublisher{}
	w := NewScanWorker(defaultRunner, factory, pub)

	msg := amqp.NewScanRequestMessage("req-3", "receipt.jpg", []byte{0xff, 0xd8})
	msg.APIKey = "user-key"
	if err := w.HandleScanRequest(context.Background(), msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if defaultRunner.calls != 0 {
		t.Error("default pipeline must not run when an override key is present")
	}
	if overrideRunner.calls != 1 {
		t.Errorf("expected 1 override run, got %d", overrideRunner.calls)
	}
	if !closed {
		t.Error("override pipeline must be closed after the request")
	}
}

func TestHandleScanRequest_OverrideUnsupported(t *testing.T) {
	w := NewScanWorker(&fakeRunner{}, nil, &fakePublisher{})

	msg := amqp.NewScanRequestMessage("req-4", "receipt.jpg", []byte{0xff, 0xd8})
	msg.APIKey = "user-key"
	if err := w.HandleScanRequest(context.Background(), msg); err == nil {
		t.Fatal("expected error when override factory is not configured")
	}
}

func TestHandleScanRequest_Errors(t *testing.T) {
	t.Run("pipeline error propagates", func(t *testing.T) {
		w := NewScanWorker(&fakeRunner{err: errors.New("db locked")}, nil, &fakePublisher{})
		msg := amqp.NewScanRequestMessage("req-5", "receipt.jpg", nil)
		if err := w.HandleScanRequest(context.Background(), msg); err == nil {
			t.Fatal("expected pipeline error to propagate")
		}
	})

	t.Run("publish error propagates", func(t *testing.T) {
		w := NewScanWorker(&fakeRunner{}, nil, &fakePublisher{err: errors.New("circuit breaker is open")})
		msg := amqp.NewScanRequestMessage("req-6", "receipt.jpg", nil)
		if err := w.HandleScanRequest(context.Background(), msg); err == nil {
			t.Fatal("expected publish error to propagate")
		}
	})
}
