//go:build !tesseract

package tesseract

import (
	"context"
	"errors"

	"github.com/kmrl/documind/internal/core/domain"
)

const Available = false

var ErrUnavailable = errors.New("tesseract support not compiled in; rebuild with -tags tesseract")

type Engine struct{}

func New(string) (*Engine, error) {
	return nil, ErrUnavailable
}

func (e *Engine) RecognizeImage(context.Context, []byte, domain.OCRMethod) (domain.OCRResult, error) {
	return domain.OCRResult{}, ErrUnavailable
}
