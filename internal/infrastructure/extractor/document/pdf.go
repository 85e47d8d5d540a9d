package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/kmrl/documind/internal/core/domain"
)

func pdfPageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "read pdf", err)
	}
	return n, nil
}

// pdfText reads the embedded text layer. Scanned PDFs yield an empty string.
func pdfText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text layer: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plain text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func (e *Extractor) extractPDF(ctx context.Context, upload domain.Upload, method domain.OCRMethod) (domain.OCRResult, error) {
	start := time.Now()

	pages, err := pdfPageCount(upload.Data)
	if err != nil {
		return domain.OCRResult{}, err
	}
	if pages == 0 {
		return domain.OCRResult{}, domain.WrapError(domain.ErrInvalidInput, "read pdf", errors.New("pdf has no pages"))
	}
	if e.maxPDFPages > 0 && pages > e.maxPDFPages {
		return domain.OCRResult{}, domain.WrapError(
			domain.ErrTooLarge,
			"read pdf",
			fmt.Errorf("pdf has %d pages; maximum is %d", pages, e.maxPDFPages),
		)
	}

	text, err := pdfText(upload.Data)
	if err != nil {
		e.logger.Warn("pdf_text_layer_failed", "filename", upload.Filename, "error", err)
	}
	if text != "" {
		return domain.OCRResult{
			Text:                  text,
			Confidence:            1.0,
			Method:                "pdf-text",
			PageCount:             pages,
			ProcessingTimeSeconds: time.Since(start).Seconds(),
		}, nil
	}

	if e.pdfOCR == nil {
		return domain.OCRResult{}, domain.WrapError(
			domain.ErrUnprocessable,
			"read pdf",
			errors.New("pdf has no text layer and no pdf ocr engine is configured"),
		)
	}
	res, err := e.pdfOCR.RecognizePDF(ctx, upload.Data, pages, method)
	if err != nil {
		return domain.OCRResult{}, err
	}
	res.PageCount = pages
	res.ProcessingTimeSeconds = time.Since(start).Seconds()
	return res, nil
}
