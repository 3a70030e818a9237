package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"kanri/internal/config"
	"kanri/internal/extract"
	"kanri/internal/ingest"
	"kanri/internal/log"
	"kanri/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()

	dir := flag.String("dir", cfg.ImagesDir, "folder containing receipt photos")
	workers := flag.Int("workers", cfg.ExtractWorkers, "concurrent extraction calls")
	apiKey := flag.String("api-key", "", "Gemini API key override")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	key := cfg.GeminiAPIKey
	if *apiKey != "" {
		key = *apiKey
	}

	if err := run(cfg, *dir, *workers, key); err != nil {
		logger.Error("Scan failed", "error", err, "dir", *dir)
		os.Exit(1)
	}
}

func run(cfg *config.Config, dir string, workers int, apiKey string) error {
	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()
	extractor, err := extract.NewGemini(ctx, apiKey, cfg.GeminiModel, cfg.ExtractTimeout)
	if err != nil {
		return fmt.Errorf("initialize extractor: %w", err)
	}
	defer extractor.Close()

	runner := ingest.NewRunner(repo, extractor, ingest.Options{
		ArchiveDir: cfg.ArchiveDir,
		Workers:    workers,
	})

	report, err := runner.RunFolder(ctx, dir)
	if err != nil {
		return err
	}

	body, err := report.MarshalPretty()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	fmt.Println(string(body))

	if report.Succeeded == 0 && report.Failed > 0 {
		return fmt.Errorf("all %d images failed", report.Failed)
	}
	return nil
}
