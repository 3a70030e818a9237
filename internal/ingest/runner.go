// Package ingest drives the receipt pipeline: source, extraction, validation,
// persistence, and per-image result accounting.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"kanri/internal/core"
	"kanri/internal/extract"
	"kanri/internal/imaging"
)

// Store is the persistence seam the orchestrator writes through.
type Store interface {
	InsertReceipt(ctx context.Context, receipt core.Receipt, items []core.LineItem) (int64, error)
}

// Options tunes one Runner.
type Options struct {
	// ArchiveDir is the subdirectory (of the image folder) that successfully
	// processed images are moved into. Empty means "archived".
	ArchiveDir string

	// Workers bounds concurrent extraction calls. Extraction is the only
	// network-bound stage; persistence stays serialized regardless.
	Workers int
}

// Runner orchestrates one batch at a time. Each image moves through
// extracting, validating and persisting, ending as one succeeded or failed
// entry in the batch report. A failed image never blocks its siblings; only
// an empty source aborts the run.
type Runner struct {
	store      Store
	extractor  extract.Extractor
	archiveDir string
	workers    int

	// mu serializes persistence: the storage handle is a single logical
	// writer.
	mu sync.Mutex
}

func NewRunner(store Store, extractor extract.Extractor, opts Options) *Runner {
	archiveDir := opts.ArchiveDir
	if archiveDir == "" {
		archiveDir = "archived"
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		store:      store,
		extractor:  extractor,
		archiveDir: archiveDir,
		workers:    workers,
	}
}

// RunFolder processes every supported image directly inside dir (empty dir
// means the default folder). Successfully processed images are archived so a
// re-run only retries the failures, which are left in place for inspection.
func (r *Runner) RunFolder(ctx context.Context, dir string) (*core.BatchReport, error) {
	paths, err := imaging.ListFolder(dir)
	if err != nil {
		return nil, err
	}

	results := make([]core.ImageResult, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = r.processFile(ctx, path)
			return nil
		})
	}
	g.Wait()

	report := &core.BatchReport{}
	for _, res := range results {
		report.Add(res)
	}

	slog.InfoContext(ctx, "Batch finished",
		"folder", dir,
		"succeeded", report.Succeeded,
		"failed", report.Failed)

	return report, nil
}

// RunBuffer processes a single in-memory image, the chat-attachment intake
// mode. There is no durable source file, so nothing is archived.
func (r *Runner) RunBuffer(ctx context.Context, name string, data []byte) (*core.BatchReport, error) {
	report := &core.BatchReport{}

	normalized, err := imaging.NormalizeBytes(data)
	if err != nil {
		report.Add(failResult(name, err))
		return report, nil
	}

	report.Add(r.process(ctx, name, normalized))
	return report, nil
}

// processFile normalizes one file, runs the pipeline, and archives the source
// on success. On failure the file is left untouched so the operator can
// inspect and retry.
func (r *Runner) processFile(ctx context.Context, path string) core.ImageResult {
	name := filepath.Base(path)

	data, err := imaging.NormalizeFile(path)
	if err != nil {
		return failResult(name, err)
	}

	res := r.process(ctx, name, data)
	if res.Status == core.StatusSucceeded {
		if _, err := imaging.Archive(path, r.archiveDir); err != nil {
			// The receipt is committed; the image will be re-offered next
			// run, which re-inserts it. Worth a loud log line.
			slog.ErrorContext(ctx, "Archiving processed image failed",
				"image", path, "error", err)
		}
	}
	return res
}

// process runs extraction, validation and persistence for one image.
func (r *Runner) process(ctx context.Context, name string, data []byte) core.ImageResult {
	logger := slog.With("image", name)

	logger.DebugContext(ctx, "Image state", "state", "extracting")
	extracted, err := r.extractor.Extract(ctx, data)
	if err != nil {
		return failResult(name, err)
	}

	logger.DebugContext(ctx, "Image state", "state", "validating")
	receipt, items, err := core.Validate(extracted)
	if err != nil {
		return failResult(name, err)
	}

	logger.DebugContext(ctx, "Image state", "state", "persisting")
	r.mu.Lock()
	id, err := r.store.InsertReceipt(ctx, receipt, items)
	r.mu.Unlock()
	if err != nil {
		// A rollback here usually means a systemic storage problem when it
		// repeats, so it is logged at error level on top of the report entry.
		logger.ErrorContext(ctx, "Persisting receipt failed", "error", err)
		return failResult(name, err)
	}

	logger.InfoContext(ctx, "Image processed",
		"receipt_id", id,
		"store", receipt.Store,
		"total", receipt.Total,
		"items", len(items))

	return core.ImageResult{
		Image:     name,
		Status:    core.StatusSucceeded,
		ReceiptID: id,
		Store:     receipt.Store,
		Total:     receipt.Total,
		ItemCount: len(items),
	}
}

func failResult(name string, err error) core.ImageResult {
	kind := core.ClassifyFailure(err)
	slog.Warn("Image failed", "image", name, "failure", kind, "error", err)
	return core.ImageResult{
		Image:   name,
		Status:  core.StatusFailed,
		Failure: kind,
		Reason:  err.Error(),
	}
}

// Describe renders a one-line, human-readable batch summary for logs and chat
// responses.
func Describe(report *core.BatchReport) string {
	return fmt.Sprintf("%d succeeded, %d failed of %d image(s)",
		report.Succeeded, report.Failed, len(report.Results))
}
