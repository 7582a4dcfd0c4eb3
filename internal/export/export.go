// Package export produces the social pack: fixed-aspect crops of a generated
// artwork sized for social media.
package export

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Output dimensions of the two social variants.
const (
	PostSize    = 1080 // square post, 1080x1080
	StoryWidth  = 1080 // vertical story, 9:16
	StoryHeight = 1920
)

// Pack bundles the two independent social artifacts.
type Pack struct {
	Post  []byte // 1080x1080 JPEG
	Story []byte // 1080x1920 JPEG
}

// SocialPack decodes a generated artwork and renders both social variants.
// The variants are independent; a pack is only returned when both succeed.
func SocialPack(data []byte) (*Pack, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}

	post, err := render(src, squareWindow(src.Bounds()), PostSize, PostSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render post variant: %w", err)
	}
	story, err := render(src, storyWindow(src.Bounds()), StoryWidth, StoryHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to render story variant: %w", err)
	}

	return &Pack{Post: post, Story: story}, nil
}

// squareWindow is the largest centered square within bounds.
func squareWindow(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	side := w
	if h < side {
		side = h
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2
	return image.Rect(x0, y0, x0+side, y0+side)
}

// storyWindow is the largest centered 9:16 window within bounds. A source
// wider than 9:16 is cropped horizontally at full height; otherwise it is
// cropped vertically at full width.
func storyWindow(b image.Rectangle) image.Rectangle {
	w, h := b.Dx(), b.Dy()
	if w*StoryHeight > h*StoryWidth {
		cropW := h * StoryWidth / StoryHeight
		x0 := b.Min.X + (w-cropW)/2
		return image.Rect(x0, b.Min.Y, x0+cropW, b.Min.Y+h)
	}
	cropH := w * StoryHeight / StoryWidth
	y0 := b.Min.Y + (h-cropH)/2
	return image.Rect(b.Min.X, y0, b.Min.X+w, y0+cropH)
}

func render(src image.Image, window image.Rectangle, outW, outH int) ([]byte, error) {
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, window, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 92}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
