package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// gradientPNG encodes an image whose left half is red and right half blue,
// so crop centering is observable in the output.
func gradientPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/2 {
				img.Set(x, y, color.RGBA{R: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestSocialPackOutputDimensions(t *testing.T) {
	pack, err := SocialPack(gradientPNG(t, 2000, 1000))
	if err != nil {
		t.Fatalf("SocialPack returned error: %v", err)
	}

	if w, h := decodeSize(t, pack.Post); w != PostSize || h != PostSize {
		t.Errorf("Post output is %dx%d, want %dx%d", w, h, PostSize, PostSize)
	}
	if w, h := decodeSize(t, pack.Story); w != StoryWidth || h != StoryHeight {
		t.Errorf("Story output is %dx%d, want %dx%d", w, h, StoryWidth, StoryHeight)
	}
}

func TestSocialPackRejectsGarbage(t *testing.T) {
	if _, err := SocialPack([]byte("not an image")); err == nil {
		t.Error("Expected decode error for non-image bytes")
	}
}

func TestSquareWindow(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		want   image.Rectangle
	}{
		{name: "landscape", w: 2000, h: 1000, want: image.Rect(500, 0, 1500, 1000)},
		{name: "portrait", w: 1000, h: 2000, want: image.Rect(0, 500, 1000, 1500)},
		{name: "already square", w: 800, h: 800, want: image.Rect(0, 0, 800, 800)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := squareWindow(image.Rect(0, 0, tt.w, tt.h))
			if got != tt.want {
				t.Errorf("squareWindow = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoryWindow(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want image.Rectangle
	}{
		{
			// Wider than 9:16: full height, horizontally centered.
			// Crop width = 1000 * 1080 / 1920 = 562.
			name: "wide source crops horizontally",
			w:    2000, h: 1000,
			want: image.Rect(719, 0, 1281, 1000),
		},
		{
			// Taller than 9:16: full width, vertically centered.
			// Crop height = 500 * 1920 / 1080 = 888.
			name: "tall source crops vertically",
			w:    500, h: 2000,
			want: image.Rect(0, 556, 500, 1444),
		},
		{
			name: "exact 9:16 passes through",
			w:    1080, h: 1920,
			want: image.Rect(0, 0, 1080, 1920),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storyWindow(image.Rect(0, 0, tt.w, tt.h))
			if got != tt.want {
				t.Errorf("storyWindow = %v, want %v", got, tt.want)
			}
			// The window must keep the source's full extent on exactly one
			// axis and stay centered on the other.
			src := image.Rect(0, 0, tt.w, tt.h)
			if !got.In(src) {
				t.Errorf("Window %v escapes source %v", got, src)
			}
		})
	}
}
