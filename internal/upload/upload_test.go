package upload

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestValidateAndIngestDimensionPolicy(t *testing.T) {
	tests := []struct {
		name      string
		width     int
		height    int
		wantSmall bool
	}{
		{name: "both sides large", width: 800, height: 600, wantSmall: false},
		{name: "both sides small", width: 200, height: 200, wantSmall: true},
		{name: "narrow but tall passes", width: 50, height: 1000, wantSmall: false},
		{name: "wide but short passes", width: 1000, height: 50, wantSmall: false},
		{name: "one side exactly at threshold", width: 512, height: 100, wantSmall: false},
		{name: "both sides just under threshold", width: 511, height: 511, wantSmall: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := NewIngestor(t.TempDir())
			candidate, err := ing.ValidateAndIngest(pngBytes(t, tt.width, tt.height), "image/png")

			if tt.wantSmall {
				var tooSmall *TooSmallError
				if !errors.As(err, &tooSmall) {
					t.Fatalf("Expected TooSmallError, got %v", err)
				}
				if tooSmall.Width != tt.width || tooSmall.Height != tt.height {
					t.Errorf("Error reports %dx%d, want %dx%d", tooSmall.Width, tooSmall.Height, tt.width, tt.height)
				}
				// The candidate is still produced so the UI can show the
				// rejected photo.
				if candidate == nil {
					t.Fatal("Expected candidate alongside TooSmallError")
				}
				return
			}

			if err != nil {
				t.Fatalf("Expected acceptance, got %v", err)
			}
			if candidate.PixelWidth != tt.width || candidate.PixelHeight != tt.height {
				t.Errorf("Candidate reports %dx%d, want %dx%d", candidate.PixelWidth, candidate.PixelHeight, tt.width, tt.height)
			}
			if candidate.PreviewURL == "" || candidate.PreviewPath == "" {
				t.Error("Accepted candidate should carry a preview handle")
			}
			if _, err := os.Stat(candidate.PreviewPath); err != nil {
				t.Errorf("Preview file should exist: %v", err)
			}
		})
	}
}

func TestValidateAndIngestFileTooLarge(t *testing.T) {
	ing := NewIngestor(t.TempDir())
	oversized := make([]byte, MaxFileBytes+1)

	if _, err := ing.ValidateAndIngest(oversized, "image/png"); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("Expected ErrFileTooLarge, got %v", err)
	}
}

func TestValidateAndIngestUnsupportedType(t *testing.T) {
	ing := NewIngestor(t.TempDir())
	if _, err := ing.ValidateAndIngest(pngBytes(t, 800, 600), "image/tiff"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Expected ErrUnsupportedType, got %v", err)
	}
}

func TestValidateAndIngestUnreadableBytes(t *testing.T) {
	ing := NewIngestor(t.TempDir())
	if _, err := ing.ValidateAndIngest([]byte("definitely not an image"), "image/png"); !errors.Is(err, ErrUnreadableImage) {
		t.Errorf("Expected ErrUnreadableImage, got %v", err)
	}
}

func TestIngestSamePhotoTwiceOwnsDistinctFiles(t *testing.T) {
	ing := NewIngestor(t.TempDir())
	photo := pngBytes(t, 800, 600)

	first, err := ing.ValidateAndIngest(photo, "image/png")
	if err != nil {
		t.Fatalf("First ingest failed: %v", err)
	}
	second, err := ing.ValidateAndIngest(photo, "image/png")
	if err != nil {
		t.Fatalf("Second ingest failed: %v", err)
	}

	if first.PreviewPath == second.PreviewPath {
		t.Fatalf("Identical photos must not share a preview file: %s", first.PreviewPath)
	}

	// Releasing one candidate leaves the other's preview intact.
	ing.Release(first)
	if _, err := os.Stat(second.PreviewPath); err != nil {
		t.Errorf("Surviving candidate's preview should still exist: %v", err)
	}
}

func TestReleaseRemovesPreview(t *testing.T) {
	ing := NewIngestor(t.TempDir())
	candidate, err := ing.ValidateAndIngest(pngBytes(t, 800, 600), "image/png")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	path := candidate.PreviewPath
	ing.Release(candidate)

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Preview file should be deleted on release")
	}
	if candidate.PreviewURL != "" {
		t.Error("Preview URL should be cleared on release")
	}

	// Releasing again (or releasing nil) is a no-op.
	ing.Release(candidate)
	ing.Release(nil)
}
