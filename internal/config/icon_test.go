package config

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func decodeIcon(t *testing.T, encoded string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("png: %v", err)
	}
	return img
}

func TestLoadIconMissing(t *testing.T) {
	encoded, err := LoadIcon(filepath.Join(t.TempDir(), "absent.png"))
	if err != nil {
		t.Fatalf("LoadIcon: %v", err)
	}
	if encoded != "" {
		t.Errorf("missing icon produced %d bytes of base64", len(encoded))
	}
}

func TestLoadIconResizes(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"already 64x64", 64, 64},
		{"small square", 16, 16},
		{"large square", 256, 256},
		{"non-square", 100, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "icon.png")
			writeTestPNG(t, path, tt.w, tt.h)

			encoded, err := LoadIcon(path)
			if err != nil {
				t.Fatalf("LoadIcon: %v", err)
			}

			img := decodeIcon(t, encoded)
			if img.Bounds().Dx() != IconSize || img.Bounds().Dy() != IconSize {
				t.Errorf("icon is %dx%d, want %dx%d",
					img.Bounds().Dx(), img.Bounds().Dy(), IconSize, IconSize)
			}
		})
	}
}
