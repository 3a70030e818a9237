package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kanri/internal/amqp"
	"kanri/internal/config"
	"kanri/internal/extract"
	"kanri/internal/ingest"
	"kanri/internal/log"
	"kanri/internal/storage"
	"kanri/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting kanri-worker")

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

	overrides := func(ctx context.Context, apiKey string) (worker.BufferRunner, func() error, error) {
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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPScanQueue, cfg.AMQPResultQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err, "url", cfg.AMQPURL)
		os.Exit(1)
	}
	defer amqpClient.Close()

	scanWorker := worker.NewScanWorker(runner, overrides, amqpClient)

	go func() {
		err := amqpClient.ConsumeScanRequests(ctx, func(msg *amqp.ScanRequestMessage) error {
			return scanWorker.HandleScanRequest(ctx, msg)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	logger.Info("Worker ready",
		"exchange", cfg.AMQPExchange,
		"request_queue", cfg.AMQPScanQueue,
		"result_queue", cfg.AMQPResultQueue,
		"model", cfg.GeminiModel)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give the in-flight request time to finish before the process exits.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
