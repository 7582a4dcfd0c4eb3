package artwork

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ErrArtworkGeneration is the single error generation failures collapse to.
// Unlike analysis there is nothing useful to show without an image, so this
// path fails closed.
var ErrArtworkGeneration = errors.New("artwork generation failed")

// FallbackFeedback is returned when quality analysis cannot complete. The
// wizard proceeds as if the photo were acceptable.
const FallbackFeedback = "We couldn't analyze your photo, but it looks good enough to continue."

// analysisInstruction is the fixed prompt sent with every quality check.
const analysisInstruction = `You are reviewing a pet photo that will be turned into stylized AI artwork.
Judge whether the photo is suitable: the pet should be clearly visible, reasonably sharp, and well lit.
Respond with ONLY a JSON object of the form {"isSuitable": boolean, "feedback": string}.
The feedback is one short, friendly sentence for the pet's owner.`

// QualityAssessment is the structured verdict of the remote analysis call.
type QualityAssessment struct {
	IsSuitable bool   `json:"isSuitable"`
	Feedback   string `json:"feedback"`
}

// Client wraps a Backend with the failure policy of each call: analysis
// errors degrade silently, generation errors surface as
// ErrArtworkGeneration. No raw transport error escapes this package.
type Client struct {
	backend Backend
}

func NewClient(backend Backend) *Client {
	return &Client{backend: backend}
}

// AnalyzeQuality asks the remote service whether the photo suits art
// generation. On any failure (transport, malformed response, missing fields)
// it fails open with a suitable verdict and fallback feedback, so a broken
// analysis step never blocks the user.
func (c *Client) AnalyzeQuality(ctx context.Context, image []byte, mimeType string) QualityAssessment {
	failOpen := QualityAssessment{IsSuitable: true, Feedback: FallbackFeedback}

	raw, err := c.backend.AnalyzeImage(ctx, image, mimeType, analysisInstruction)
	if err != nil {
		slog.Warn("Quality analysis failed, continuing without it", "err", err)
		return failOpen
	}

	assessment, err := parseAssessment(raw)
	if err != nil {
		slog.Warn("Quality analysis returned unusable response, continuing without it", "err", err)
		return failOpen
	}
	return assessment
}

// parseAssessment decodes the analysis response, tolerating markdown code
// fences around the JSON.
func parseAssessment(raw string) (QualityAssessment, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var fields struct {
		IsSuitable *bool   `json:"isSuitable"`
		Feedback   *string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return QualityAssessment{}, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if fields.IsSuitable == nil || fields.Feedback == nil {
		return QualityAssessment{}, fmt.Errorf("response is missing required fields")
	}
	return QualityAssessment{IsSuitable: *fields.IsSuitable, Feedback: *fields.Feedback}, nil
}

// GenerateArt produces one stylized rendering for one prompt. Any failure,
// including a response without an image payload, is reported as
// ErrArtworkGeneration. Calls are independent and not retried internally.
func (c *Client) GenerateArt(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, error) {
	result, err := c.backend.GenerateImage(ctx, image, mimeType, prompt)
	if err != nil {
		slog.Error("Artwork generation failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrArtworkGeneration, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: empty image payload", ErrArtworkGeneration)
	}
	return result, nil
}

// GenerateVariants produces one rendering per prompt, returned in prompt
// order. Sequential dispatch is the default; concurrent dispatch joins the
// results back into prompt order. Either every variant succeeds or the whole
// operation fails with no partial results.
func (c *Client) GenerateVariants(ctx context.Context, image []byte, mimeType string, prompts []string, concurrent bool) ([][]byte, error) {
	if len(prompts) == 0 {
		return nil, fmt.Errorf("%w: no prompts", ErrArtworkGeneration)
	}

	results := make([][]byte, len(prompts))

	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i, prompt := range prompts {
			g.Go(func() error {
				img, err := c.GenerateArt(gctx, image, mimeType, prompt)
				if err != nil {
					return err
				}
				results[i] = img
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}

	for i, prompt := range prompts {
		img, err := c.GenerateArt(ctx, image, mimeType, prompt)
		if err != nil {
			return nil, err
		}
		results[i] = img
	}
	return results, nil
}
