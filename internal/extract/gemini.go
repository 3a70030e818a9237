package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"kanri/internal/core"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

// Gemini implements Extractor using the Google Gemini vision API.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGemini creates a Gemini extraction client. An empty API key is a
// configuration failure, reported as MissingConfigError so front ends can
// prompt for an override.
func NewGemini(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &core.MissingConfigError{Key: "GEMINI_API_KEY"}
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:  client,
		model:   client.GenerativeModel(modelName),
		timeout: timeout,
	}, nil
}

// Extract sends the image with the fixed extraction prompt and parses the
// response. The call is bounded by the per-call timeout; a timeout surfaces
// as ErrExtractionFailed like any other remote error.
func (g *Gemini) Extract(ctx context.Context, imageData []byte) (core.ExtractionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData(imageFormat(imageData), imageData),
		genai.Text(extractionPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return core.ExtractionResult{}, fmt.Errorf("%w: %v", core.ErrExtractionFailed, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return core.ExtractionResult{}, fmt.Errorf("%w: empty response", core.ErrExtractionFailed)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return Parse(text.String())
}

// Close releases the underlying API client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// imageFormat returns the format suffix genai expects ("png" or "jpeg").
func imageFormat(data []byte) string {
	if bytes.HasPrefix(data, pngMagic) {
		return "png"
	}
	return "jpeg"
}
