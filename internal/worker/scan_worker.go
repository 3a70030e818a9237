// Package worker processes scan requests arriving over AMQP: each request
// carries one receipt photo, gets run through the ingestion pipeline, and is
// answered with the batch report chunked for chat delivery.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"kanri/internal/amqp"
	"kanri/internal/core"
)

// BufferRunner runs the ingestion pipeline on a single in-memory image.
type BufferRunner interface {
	RunBuffer(ctx context.Context, name string, data []byte) (*core.BatchReport, error)
}

// ResultPublisher sends the chunked report back to the requesting frontend.
type ResultPublisher interface {
	PublishScanResult(ctx context.Context, msg *amqp.ScanResultMessage) error
}

// RunnerFactory builds a pipeline bound to a caller-supplied Gemini key.
// Invoked only for requests that carry an APIKey override; the returned
// closer releases the extractor.
type RunnerFactory func(ctx context.Context, apiKey string) (BufferRunner, func() error, error)

type ScanWorker struct {
	runner    BufferRunner
	overrides RunnerFactory
	publisher ResultPublisher
}

func NewScanWorker(runner BufferRunner, overrides RunnerFactory, publisher ResultPublisher) *ScanWorker {
	return &ScanWorker{
		runner:    runner,
		overrides: overrides,
		publisher: publisher,
	}
}

// HandleScanRequest processes a single scan request. Extraction and
// validation failures are part of the report, not errors; only broken
// plumbing (marshalling, publishing, runner construction) propagates so the
// delivery gets requeued.
func (w *ScanWorker) HandleScanRequest(ctx context.Context, msg *amqp.ScanRequestMessage) error {
	slog.InfoContext(ctx, "Processing scan request",
		"request_id", msg.RequestID,
		"name", msg.Name,
		"bytes", len(msg.Image),
		"key_override", msg.APIKey != "")

	runner := w.runner
	if msg.APIKey != "" {
		if w.overrides == nil {
			return fmt.Errorf("request %s: api key override not supported", msg.RequestID)
		}
		override, closeRunner, err := w.overrides(ctx, msg.APIKey)
		if err != nil {
			return fmt.Errorf("request %s: build override pipeline: %w", msg.RequestID, err)
		}
		defer closeRunner()
		runner = override
	}

	report, err := runner.RunBuffer(ctx, msg.Name, msg.Image)
	if err != nil {
		return fmt.Errorf("request %s: run pipeline: %w", msg.RequestID, err)
	}

	body, err := report.MarshalPretty()
	if err != nil {
		return fmt.Errorf("request %s: marshal report: %w", msg.RequestID, err)
	}
	chunks := core.ChunkText(string(body), core.ChatMessageLimit)

	result := amqp.NewScanResultMessage(msg.RequestID, chunks)
	if err := w.publisher.PublishScanResult(ctx, result); err != nil {
		return fmt.Errorf("request %s: publish result: %w", msg.RequestID, err)
	}

	slog.InfoContext(ctx, "Scan request completed",
		"request_id", msg.RequestID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"chunks", len(chunks))
	return nil
}
