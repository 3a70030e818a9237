package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"kanri/internal/config"
	"kanri/internal/log"
	"kanri/internal/sheets"
	gsheet "kanri/internal/sheets/google"
	"kanri/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("GOOGLE_SPREADSHEET_ID is required for export")
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Export failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Export complete", "spreadsheet_id", cfg.GoogleSpreadsheetID)
}

func run(cfg *config.Config, logger *log.Logger) error {
	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	snap, err := buildSnapshot(ctx, repo)
	if err != nil {
		return err
	}
	logger.Info("Snapshot collected",
		"receipts", len(snap.Receipts),
		"items", len(snap.Items),
		"stores", len(snap.Stores))

	sink, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID)
	if err != nil {
		return fmt.Errorf("initialize sheets client: %w", err)
	}

	return sink.Export(ctx, snap)
}

func buildSnapshot(ctx context.Context, repo *storage.Repository) (sheets.Snapshot, error) {
	var snap sheets.Snapshot
	var err error

	if snap.Receipts, err = repo.ListReceipts(ctx); err != nil {
		return snap, fmt.Errorf("list receipts: %w", err)
	}
	if snap.Items, err = repo.ListItems(ctx); err != nil {
		return snap, fmt.Errorf("list items: %w", err)
	}
	if snap.Stores, err = repo.StoreSummaries(ctx); err != nil {
		return snap, fmt.Errorf("store summaries: %w", err)
	}
	if snap.Genres, err = repo.GenreSummaries(ctx); err != nil {
		return snap, fmt.Errorf("genre summaries: %w", err)
	}
	if snap.Months, err = repo.MonthSummaries(ctx); err != nil {
		return snap, fmt.Errorf("month summaries: %w", err)
	}
	if snap.Weekdays, err = repo.WeekdaySummaries(ctx); err != nil {
		return snap, fmt.Errorf("weekday summaries: %w", err)
	}
	return snap, nil
}
