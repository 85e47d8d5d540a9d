package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 200})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestInspectReadsDimensions(t *testing.T) {
	info, err := Inspect(encodePNG(t, 120, 40))
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.Width != 120 || info.Height != 40 || info.Format != "png" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	if _, err := Inspect([]byte("not an image")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPreprocessBoundsLongestSide(t *testing.T) {
	out, err := Preprocess(encodePNG(t, 3200, 100))
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	info, err := Inspect(out)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.Width != 3000 || info.Format != "png" {
		t.Fatalf("unexpected output %+v", info)
	}
}

func TestPreprocessKeepsSmallImageSize(t *testing.T) {
	out, err := Preprocess(encodePNG(t, 80, 60))
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	info, _ := Inspect(out)
	if info.Width != 80 || info.Height != 60 {
		t.Fatalf("unexpected output %+v", info)
	}
}
