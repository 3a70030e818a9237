package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"kanri/internal/core"
)

// noReceiptSentinel is the distinguished non-JSON reply meaning the model saw
// no receipt in the image.
const noReceiptSentinel = "レシートが含まれていません"

// stripFence removes a markdown code fence wrapping the response body. The
// grammar is explicit: an optional leading fence line (three backticks plus an
// optional language tag), the body, and an optional trailing fence line.
// Nothing inside the body is touched, so item names that legitimately contain
// backticks survive.
func stripFence(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 0 {
		first := strings.TrimSpace(lines[0])
		if strings.HasPrefix(first, "```") && !strings.Contains(first, "{") {
			lines = lines[1:]
		}
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Parse reduces raw model text to an ExtractionResult. A body that is not a
// JSON object yields ErrNotAReceipt when the sentinel phrase is present, and
// ErrUnparsableResponse otherwise. No semantic repair beyond fence stripping
// is attempted.
func Parse(text string) (core.ExtractionResult, error) {
	body := stripFence(text)

	var res core.ExtractionResult
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&res); err != nil {
		if strings.Contains(body, noReceiptSentinel) {
			return core.ExtractionResult{}, core.ErrNotAReceipt
		}
		return core.ExtractionResult{}, fmt.Errorf("%w: %v", core.ErrUnparsableResponse, err)
	}
	return res, nil
}
