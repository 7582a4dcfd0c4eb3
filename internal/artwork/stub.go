package artwork

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/jpeg"
	"time"
)

// Stub is an offline Backend for local development: analysis always approves
// and generation returns a flat-color placeholder derived from the prompt.
type Stub struct {
	// Delay simulates remote latency. Zero means no delay.
	Delay time.Duration
}

func NewStub() *Stub {
	return &Stub{}
}

func (s *Stub) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(s.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stub) AnalyzeImage(ctx context.Context, image []byte, mimeType, instruction string) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return `{"isSuitable": true, "feedback": "What a great photo! Ready for its makeover."}`, nil
}

func (s *Stub) GenerateImage(ctx context.Context, image []byte, mimeType, prompt string) ([]byte, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	h := fnv.New32a()
	h.Write([]byte(prompt))
	seed := h.Sum32()
	fill := color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: uint8(seed >> 16), A: 255}

	img := newFilledImage(1024, 1024, fill)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func newFilledImage(width, height int, fill color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	return img
}
