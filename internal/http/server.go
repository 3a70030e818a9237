// Package http exposes the scan pipeline and report projections as a JSON
// API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kanri/internal/cache"
	"kanri/internal/core"
	"kanri/internal/log"
	"kanri/internal/storage"
)

// Store is the read side the handlers need from the SQLite repository.
type Store interface {
	ListReceipts(ctx context.Context) ([]core.Receipt, error)
	GetReceipt(ctx context.Context, id int64) (core.Receipt, []core.LineItem, error)
	StoreSummaries(ctx context.Context) ([]storage.StoreSummary, error)
	GenreSummaries(ctx context.Context) ([]storage.GenreSummary, error)
	MonthSummaries(ctx context.Context) ([]storage.MonthSummary, error)
	WeekdaySummaries(ctx context.Context) ([]storage.WeekdaySummary, error)
}

// ScanRunner runs the ingestion pipeline on a folder or a single upload.
type ScanRunner interface {
	RunFolder(ctx context.Context, dir string) (*core.BatchReport, error)
	RunBuffer(ctx context.Context, name string, data []byte) (*core.BatchReport, error)
}

// RunnerFactory builds a pipeline bound to a caller-supplied Gemini key for
// one request. Nil disables per-request key overrides.
type RunnerFactory func(ctx context.Context, apiKey string) (ScanRunner, func() error, error)

type Server struct {
	http.Server
	store       Store
	runner      ScanRunner
	overrides   RunnerFactory
	imagesDir   string
	logger      *log.Logger
	rateLimiter *rateLimiter

	// reportCache holds rendered report JSON per endpoint; invalidated
	// whenever a scan persists new receipts.
	reportCache *cache.TTLCache[[]byte]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, store Store, runner ScanRunner, overrides RunnerFactory, imagesDir string, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:       store,
		runner:      runner,
		overrides:   overrides,
		imagesDir:   imagesDir,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
		reportCache: cache.New[[]byte](16, 5*time.Minute),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           log.Middleware(s.logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/scan", s.handleScan)
	mux.HandleFunc("/receipts", s.handleReceipts)
	mux.HandleFunc("/reports/stores", s.cachedReport("stores", func(ctx context.Context) (any, error) {
		return s.store.StoreSummaries(ctx)
	}))
	mux.HandleFunc("/reports/genres", s.cachedReport("genres", func(ctx context.Context) (any, error) {
		return s.store.GenreSummaries(ctx)
	}))
	mux.HandleFunc("/reports/monthly", s.cachedReport("monthly", func(ctx context.Context) (any, error) {
		return s.store.MonthSummaries(ctx)
	}))
	mux.HandleFunc("/reports/weekday", s.cachedReport("weekday", func(ctx context.Context) (any, error) {
		return s.store.WeekdaySummaries(ctx)
	}))

	return s
}

// Shutdown stops the rate limiter cleanup goroutine and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListReceipts(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "readiness check failed", "error", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Simple in-memory rate limiter for scan requests. Extraction hits a paid
// API, so POSTs are capped per client.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

const scanRequestsPerMinute = 30

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	client.requests++
	client.lastRequest = now
	return client.requests <= scanRequestsPerMinute
}
