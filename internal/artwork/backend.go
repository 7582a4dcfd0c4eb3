// Package artwork is the client for the remote art service. It normalizes
// every remote failure into one of two domain outcomes: quality analysis
// fails open, generation fails closed.
package artwork

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultModel is the image-capable model used when none is configured.
const DefaultModel = "gemini-2.5-flash-image-preview"

// Backend is the raw remote surface: one text-returning analysis call and
// one image-returning generation call. Both take the photo inline. Tests
// inject fakes; production uses Gemini.
type Backend interface {
	// AnalyzeImage sends the photo plus an instruction and returns the
	// model's text response.
	AnalyzeImage(ctx context.Context, image []byte, mimeType, instruction string) (string, error)
	// GenerateImage sends the photo plus a style prompt and returns the
	// first inline image payload of the response.
	GenerateImage(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, error)
}

// Gemini is the production Backend.
type Gemini struct {
	model string
}

// NewGemini returns a Gemini backend. An empty model selects DefaultModel;
// the GEMINI_API_KEY environment variable is read per call so a key loaded
// after startup still takes effect.
func NewGemini(model string) *Gemini {
	if model == "" {
		model = os.Getenv("PAWTRAIT_MODEL")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{model: model}
}

func (g *Gemini) newClient(ctx context.Context) (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	return client, nil
}

// imageFormat maps a MIME type to the bare format label genai expects.
func imageFormat(mimeType string) string {
	return strings.TrimPrefix(mimeType, "image/")
}

func (g *Gemini) AnalyzeImage(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(instruction),
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("empty content returned from Gemini")
	}

	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("unexpected response format from Gemini")
}

func (g *Gemini) GenerateImage(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(prompt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	// The first inline image payload in the response is the result.
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				return blob.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("no image returned from Gemini")
}
