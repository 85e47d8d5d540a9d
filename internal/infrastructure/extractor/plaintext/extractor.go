package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kmrl/documind/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extractor reads UTF-8 text uploads as-is.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, upload domain.Upload) (domain.OCRResult, error) {
	start := time.Now()
	raw := bytes.TrimPrefix(upload.Data, utf8BOM)

	if !utf8.Valid(raw) {
		return domain.OCRResult{}, domain.WrapError(
			domain.ErrUnprocessable,
			"extract plain text",
			fmt.Errorf("%s is not valid UTF-8", upload.Filename),
		)
	}

	return domain.OCRResult{
		Text:                  strings.TrimSpace(string(raw)),
		Confidence:            1.0,
		Method:                "plain-text",
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}, nil
}
