package extract

import (
	"errors"
	"testing"

	"kanri/internal/core"
)

const validJSON = `{
  "store": "セブンイレブン",
  "genre": "コンビニ",
  "datetime": "2024-05-01T12:30:00",
  "total": 1280,
  "items": [
    {"name": "おにぎり", "price": 150},
    {"name": "お茶", "price": 130}
  ]
}`

func TestParse_ResponseWrappings(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "raw JSON", text: validJSON},
		{name: "fenced with language tag", text: "```json\n" + validJSON + "\n```"},
		{name: "fenced without language tag", text: "```\n" + validJSON + "\n```"},
		{name: "fence with surrounding whitespace", text: "\n\n```json\n" + validJSON + "\n```\n\n"},
		{name: "leading fence only", text: "```json\n" + validJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.text)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if res.Store == nil || *res.Store != "セブンイレブン" {
				t.Errorf("store = %v, want セブンイレブン", res.Store)
			}
			if res.Total == nil || *res.Total != 1280 {
				t.Errorf("total = %v, want 1280", res.Total)
			}
			if len(res.Items) != 2 {
				t.Errorf("items = %d, want 2", len(res.Items))
			}
		})
	}
}

func TestParse_BackticksInsideBody(t *testing.T) {
	text := "```json\n" + `{
  "store": "コメダ珈琲",
  "datetime": "2024-05-01T12:30",
  "total": 500,
  "items": [{"name": "アイス` + "`" + `コーヒー", "price": 500}]
}` + "\n```"

	res, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := *res.Items[0].Name; got != "アイス`コーヒー" {
		t.Errorf("item name = %q, backtick was mangled", got)
	}
}

func TestParse_NotAReceipt(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "bare sentinel", text: "レシートが含まれていません"},
		{name: "sentinel inside a sentence", text: "申し訳ありませんが、この画像にはレシートが含まれていません。"},
		{name: "fenced sentinel", text: "```\nレシートが含まれていません\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if !errors.Is(err, core.ErrNotAReceipt) {
				t.Errorf("Parse error = %v, want ErrNotAReceipt", err)
			}
		})
	}
}

func TestParse_Unparsable(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "free text", text: "The receipt shows a purchase at a store."},
		{name: "truncated JSON", text: `{"store": "ローソン", "total":`},
		{name: "empty response", text: ""},
		{name: "fence with nothing inside", text: "```json\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if !errors.Is(err, core.ErrUnparsableResponse) {
				t.Errorf("Parse error = %v, want ErrUnparsableResponse", err)
			}
			if errors.Is(err, core.ErrNotAReceipt) {
				t.Error("plain parse failure must not be reported as NotAReceipt")
			}
		})
	}
}

func TestParse_MissingKeysSurviveToValidation(t *testing.T) {
	// A well-formed object with absent keys is a parse success; the validator
	// owns the required-field contract.
	res, err := Parse(`{"store": "ダイソー"}`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if res.Total != nil || res.Datetime != nil || res.Items != nil {
		t.Error("absent keys should decode as nil")
	}
	if _, _, err := core.Validate(res); err == nil {
		t.Error("Validate accepted a record with missing fields")
	}
}

func TestImageFormat(t *testing.T) {
	if got := imageFormat([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}); got != "png" {
		t.Errorf("png magic = %q, want png", got)
	}
	if got := imageFormat([]byte{0xff, 0xd8, 0xff}); got != "jpeg" {
		t.Errorf("jpeg magic = %q, want jpeg", got)
	}
}
