package core

import (
	"bytes"
	"encoding/json"
)

// ImageStatus is the terminal state of one image in a batch run.
type ImageStatus string

const (
	StatusSucceeded ImageStatus = "succeeded"
	StatusFailed    ImageStatus = "failed"
)

// ImageResult records the outcome of processing one image.
type ImageResult struct {
	Image     string      `json:"image"`
	Status    ImageStatus `json:"status"`
	ReceiptID int64       `json:"receipt_id,omitempty"`
	Store     string      `json:"store,omitempty"`
	Total     float64     `json:"total,omitempty"`
	ItemCount int         `json:"item_count,omitempty"`
	Failure   string      `json:"failure,omitempty"` // one of the Failure* kinds
	Reason    string      `json:"reason,omitempty"`
}

// BatchReport aggregates per-image outcomes for one orchestrator run.
type BatchReport struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Results   []ImageResult `json:"results"`
}

// Add appends one outcome and updates the counters.
func (r *BatchReport) Add(res ImageResult) {
	r.Results = append(r.Results, res)
	if res.Status == StatusSucceeded {
		r.Succeeded++
	} else {
		r.Failed++
	}
}

// MarshalPretty renders the report as indented UTF-8 JSON. Non-ASCII text
// (store and item names are frequently Japanese) is preserved as-is.
func (r *BatchReport) MarshalPretty() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ChatMessageLimit is the chunk boundary for chat front ends that cap
// message length.
const ChatMessageLimit = 2000

// ChunkText splits s at limit-rune boundaries so multi-byte text is never cut
// mid-character. A non-positive limit falls back to ChatMessageLimit.
func ChunkText(s string, limit int) []string {
	if limit <= 0 {
		limit = ChatMessageLimit
	}
	if s == "" {
		return nil
	}
	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
