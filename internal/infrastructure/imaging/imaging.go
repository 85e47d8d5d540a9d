// Package imaging validates uploaded raster images and prepares them for OCR.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	maxDimension    = 3000
	contrastFactor  = 1.5
	sharpnessFactor = 1.3
)

type Info struct {
	Width  int
	Height int
	Format string
}

// Inspect decodes only the image header.
func Inspect(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode image header: %w", err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Preprocess flattens alpha onto white, bounds the longest side to 3000 px, boosts contrast and
// sharpness and re-encodes as PNG.
func Preprocess(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > maxDimension || h > maxDimension {
		scale := float64(maxDimension) / float64(max(w, h))
		w, h = int(float64(w)*scale), int(float64(h)*scale)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(rgba, rgba.Bounds(), src, b, draw.Over, nil)

	enhanceContrast(rgba, contrastFactor)
	out := sharpen(rgba, sharpnessFactor)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// enhanceContrast scales every channel away from the mean luminance.
func enhanceContrast(img *image.RGBA, factor float64) {
	var sum float64
	pix := img.Pix
	n := len(pix) / 4
	if n == 0 {
		return
	}
	for i := 0; i < len(pix); i += 4 {
		sum += 0.299*float64(pix[i]) + 0.587*float64(pix[i+1]) + 0.114*float64(pix[i+2])
	}
	mean := sum / float64(n)
	for i := 0; i < len(pix); i += 4 {
		for c := 0; c < 3; c++ {
			pix[i+c] = clamp(mean + (float64(pix[i+c])-mean)*factor)
		}
	}
}

// sharpen blends the image with a 3x3 box-smoothed copy: out = smooth + factor*(src - smooth).
func sharpen(img *image.RGBA, factor float64) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	copy(out.Pix, img.Pix)
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			i := img.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				var acc float64
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						acc += float64(img.Pix[img.PixOffset(x+dx, y+dy)+c])
					}
				}
				smooth := acc / 9
				out.Pix[i+c] = clamp(smooth + factor*(float64(img.Pix[i+c])-smooth))
			}
		}
	}
	return out
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
