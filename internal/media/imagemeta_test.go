package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func encodedPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestDimensions_DecodesPNG(t *testing.T) {
	t.Parallel()
	data := encodedPNG(t, 64, 32)

	width, height, err := Dimensions(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Dimensions() error = %v", err)
	}
	if width != 64 || height != 32 {
		t.Errorf("Dimensions() = (%d, %d), want (64, 32)", width, height)
	}
}

func TestDimensions_RejectsNonImage(t *testing.T) {
	t.Parallel()
	_, _, err := Dimensions(strings.NewReader("not an image"))
	if err == nil {
		t.Fatal("Dimensions() error = nil, want non-nil for non-image input")
	}
}
