// Package upload performs local validation of pet photos before any remote
// call is made, producing a candidate image with a served preview handle.
package upload

import (
	"bytes"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	_ "golang.org/x/image/webp"
)

// MaxFileBytes is the upload size ceiling (4 MiB, the inline-data limit of
// the remote art service).
const MaxFileBytes = 4 * 1024 * 1024

// MinDimension is the pixel threshold below which an image side counts as
// too small. Rejection requires BOTH sides to fall below it; a narrow but
// tall photo (or vice versa) passes. Intentional, relaxed policy.
const MinDimension = 512

// ErrFileTooLarge is returned for uploads over MaxFileBytes.
var ErrFileTooLarge = fmt.Errorf("file exceeds %d MiB limit", MaxFileBytes/(1024*1024))

// ErrUnreadableImage is returned when the bytes do not decode as a supported
// image format.
var ErrUnreadableImage = errors.New("could not read image format")

// ErrUnsupportedType is returned for MIME types outside the accepted set.
var ErrUnsupportedType = errors.New("unsupported image type")

// TooSmallError reports an image whose dimensions both fall below
// MinDimension.
type TooSmallError struct {
	Width, Height int
}

func (e *TooSmallError) Error() string {
	return fmt.Sprintf("image is too small (%dx%d px); at least one side must be %d px", e.Width, e.Height, MinDimension)
}

// CandidateImage is a locally validated, not-yet-styled photo ready for
// submission to the remote art service. The preview handle is a served file
// distinct from the raw bytes; it must be released when the candidate is
// replaced or the session resets.
type CandidateImage struct {
	RawBytes    []byte `json:"-"`
	MIMEType    string `json:"mime_type"`
	PixelWidth  int    `json:"pixel_width"`
	PixelHeight int    `json:"pixel_height"`
	PreviewPath string `json:"-"`
	PreviewURL  string `json:"preview_url"`
}

var acceptedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Ingestor validates uploads and manages their preview files.
type Ingestor struct {
	uploadsDir string
}

// NewIngestor returns an ingestor writing preview files under uploadsDir.
func NewIngestor(uploadsDir string) *Ingestor {
	return &Ingestor{uploadsDir: uploadsDir}
}

// ValidateAndIngest checks size, type and dimensions, and on acceptance
// writes the preview file and returns the candidate.
//
// A decodable image whose sides are both under MinDimension returns a
// *TooSmallError together with a fully populated candidate: the caller may
// still show the preview while blocking progression, matching the wizard's
// behavior of keeping a rejected photo on screen.
func (ing *Ingestor) ValidateAndIngest(data []byte, mimeType string) (*CandidateImage, error) {
	if len(data) > MaxFileBytes {
		return nil, ErrFileTooLarge
	}

	ext, ok := acceptedTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	candidate := &CandidateImage{
		RawBytes:    data,
		MIMEType:    mimeType,
		PixelWidth:  cfg.Width,
		PixelHeight: cfg.Height,
	}

	if err := ing.writePreview(candidate, ext); err != nil {
		return nil, err
	}

	if cfg.Width < MinDimension && cfg.Height < MinDimension {
		return candidate, &TooSmallError{Width: cfg.Width, Height: cfg.Height}
	}
	return candidate, nil
}

func (ing *Ingestor) writePreview(c *CandidateImage, ext string) error {
	if err := os.MkdirAll(ing.uploadsDir, 0755); err != nil {
		return fmt.Errorf("failed to create uploads directory: %w", err)
	}

	// The content hash alone is not enough: two candidates holding the same
	// photo (a replacement, or another session) would alias the same file,
	// and releasing one would destroy the other's preview. A random suffix
	// makes every ingest own its file.
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Errorf("failed to name preview: %w", err)
	}
	filename := fmt.Sprintf("%x-%x%s", md5.Sum(c.RawBytes), suffix, ext)
	path := filepath.Join(ing.uploadsDir, filename)
	if err := os.WriteFile(path, c.RawBytes, 0644); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}

	c.PreviewPath = path
	c.PreviewURL = "/static/uploads/" + filename
	slog.Info("Candidate image saved", "filename", filename, "width", c.PixelWidth, "height", c.PixelHeight)
	return nil
}

// Release removes the candidate's preview file. Safe to call on nil or on a
// candidate whose file is already gone.
func (ing *Ingestor) Release(c *CandidateImage) {
	if c == nil || c.PreviewPath == "" {
		return
	}
	if err := os.Remove(c.PreviewPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove preview file", "path", c.PreviewPath, "err", err)
	}
	c.PreviewPath = ""
	c.PreviewURL = ""
}
