package http

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"kanri/internal/core"
)

// maxUploadBytes caps a single receipt photo upload.
const maxUploadBytes = 20 << 20

// handleScan runs the pipeline. A multipart POST scans the uploaded image;
// a bodyless POST scans a folder (dir query parameter, empty means the
// configured image folder). The Gemini key can be overridden per request via
// the api_key form field or X-Api-Key header.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.rateLimiter.allow(clientIP(r)) {
		s.logger.WarnContext(r.Context(), "scan rate limit exceeded", "client_ip", clientIP(r))
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
		return
	}

	apiKey := strings.TrimSpace(r.Header.Get("X-Api-Key"))

	var (
		upload     []byte
		uploadName string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing image field: "+err.Error())
			return
		}
		defer file.Close()

		upload, err = io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
			return
		}
		uploadName = header.Filename
		if v := strings.TrimSpace(r.FormValue("api_key")); v != "" {
			apiKey = v
		}
	}

	runner := s.runner
	if apiKey != "" {
		if s.overrides == nil {
			writeError(w, http.StatusBadRequest, "api key override not supported")
			return
		}
		override, closeRunner, err := s.overrides(r.Context(), apiKey)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "override pipeline setup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "pipeline setup failed")
			return
		}
		defer closeRunner()
		runner = override
	}

	var (
		report *core.BatchReport
		err    error
	)
	dir := s.imagesDir
	if upload != nil {
		report, err = runner.RunBuffer(r.Context(), uploadName, upload)
	} else {
		if v := strings.TrimSpace(r.URL.Query().Get("dir")); v != "" {
			dir = v
		}
		report, err = runner.RunFolder(r.Context(), dir)
	}
	switch {
	case errors.Is(err, core.ErrNoImagesFound):
		writeError(w, http.StatusNotFound, "no images found in "+dir)
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	if report.Succeeded > 0 {
		s.reportCache.Invalidate()
	}

	body, err := report.MarshalPretty()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "report marshal failed", "error", err)
		writeError(w, http.StatusInternalServerError, "report marshal failed")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleReceipts lists receipts, or returns one receipt with its line items
// when an id query parameter is present.
func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if v := strings.TrimSpace(r.URL.Query().Get("id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid receipt id")
			return
		}
		receipt, items, err := s.store.GetReceipt(r.Context(), id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "receipt not found")
			return
		case err != nil:
			s.logger.ErrorContext(r.Context(), "get receipt failed", "receipt_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "storage error")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Receipt core.Receipt    `json:"receipt"`
			Items   []core.LineItem `json:"items"`
		}{receipt, items})
		return
	}

	receipts, err := s.store.ListReceipts(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list receipts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	if receipts == nil {
		receipts = []core.Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// cachedReport wraps a projection query with the TTL cache, serving the
// rendered JSON until a scan invalidates it.
func (s *Server) cachedReport(key string, fetch func(ctx context.Context) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if body, ok := s.reportCache.Get(key); ok {
			s.logger.DebugContext(r.Context(), "report cache hit", "report", key)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}

		data, err := fetch(r.Context())
		if err != nil {
			s.logger.ErrorContext(r.Context(), "report query failed", "report", key, "error", err)
			writeError(w, http.StatusInternalServerError, "storage error")
			return
		}

		body, err := marshalPretty(data)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "report marshal failed", "report", key, "error", err)
			writeError(w, http.StatusInternalServerError, "report marshal failed")
			return
		}
		s.reportCache.Set(key, body)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
