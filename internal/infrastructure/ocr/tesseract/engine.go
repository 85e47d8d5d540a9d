//go:build tesseract

package tesseract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/kmrl/documind/internal/core/domain"
)

// Available reports whether the binary was built with libtesseract.
const Available = true

// Engine runs Tesseract locally through gosseract.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// New takes Tesseract language codes joined by "+", e.g. "eng+mal".
func New(languages string) (*Engine, error) {
	var langs []string
	for _, l := range strings.Split(languages, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	return &Engine{languages: langs, clientFactory: gosseract.NewClient}, nil
}

func (e *Engine) RecognizeImage(ctx context.Context, image []byte, method domain.OCRMethod) (domain.OCRResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return domain.OCRResult{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrUnprocessable, "tesseract set image", err)
	}
	if err := c.SetLanguage(e.languages...); err != nil {
		return domain.OCRResult{}, fmt.Errorf("tesseract set languages: %w", err)
	}
	// Sparse text mode for short labels, automatic page segmentation for documents.
	mode := gosseract.PSM_AUTO
	if method == domain.OCRMethodText {
		mode = gosseract.PSM_SPARSE_TEXT
	}
	if err := c.SetPageSegMode(mode); err != nil {
		return domain.OCRResult{}, fmt.Errorf("tesseract set page mode: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrUnprocessable, "tesseract recognize", err)
	}

	return domain.OCRResult{
		Text:                  strings.TrimSpace(text),
		Confidence:            averageWordConfidence(c),
		Method:                "tesseract-" + string(method),
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}, nil
}

func averageWordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
