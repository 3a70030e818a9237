package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kanri/internal/config"
	"kanri/internal/extract"
	apphttp "kanri/internal/http"
	"kanri/internal/ingest"
	"kanri/internal/log"
	"kanri/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor, err := extract.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ExtractTimeout)
	if err != nil {
		logger.Error("Failed to initialize extractor", "error", err, "model", cfg.GeminiModel)
		os.Exit(1)
	}
	defer extractor.Close()

	runner := ingest.NewRunner(repo, extractor, ingest.Options{
		ArchiveDir: cfg.ArchiveDir,
		Workers:    cfg.ExtractWorkers,
	})

	// Per-request Gemini key overrides get their own extractor and pipeline.
	overrides := func(ctx context.Context, apiKey string) (apphttp.ScanRunner, func() error, error) {
		ex, err := extract.NewGemini(ctx, apiKey, cfg.GeminiModel, cfg.ExtractTimeout)
		if err != nil {
			return nil, nil, err
		}
		r := ingest.NewRunner(repo, ex, ingest.Options{
			ArchiveDir: cfg.ArchiveDir,
			Workers:    cfg.ExtractWorkers,
		})
		return r, ex.Close, nil
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, runner, overrides, cfg.ImagesDir, logger)
	srv.ReadTimeout = 10 * time.Minute // folder scans run inside the request
	srv.WriteTimeout = 10 * time.Minute
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting kanri server",
		"port", cfg.Port,
		"db", cfg.SQLiteDBPath,
		"images_dir", cfg.ImagesDir,
		"model", cfg.GeminiModel)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
