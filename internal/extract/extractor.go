// Package extract wraps the remote vision model that turns receipt images
// into candidate structured records.
package extract

import (
	"context"

	"kanri/internal/core"
)

// Extractor converts image bytes into a candidate structured record. Extract
// must be safe to retry: no local state is mutated on failure.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) (core.ExtractionResult, error)
	Close() error
}

// extractionPrompt is the fixed instruction sent with every image. The model
// must answer with one JSON object, or with the sentinel phrase when the
// image contains no receipt.
const extractionPrompt = `画像にはレシートが含まれています。レシートの内容をjson形式で出力してください
例：
{
    "store": "store_name",
    "genre": "レシートの大まかなジャンル（食料品、外食、日用品など）",
    "datetime": "iso8601の日時",
    "total": 税込みの合計金額,
    "items": [
        {"name": "item1", "price": 500},
        {"name": "item2", "price": 500}
    ]
}
もし画像にレシートが含まれていない場合は、その旨を出力してください
例：レシートが含まれていません
`
