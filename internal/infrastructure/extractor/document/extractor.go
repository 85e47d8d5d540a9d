// Package document extracts text from uploads by file kind, running OCR where the file has no text layer.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
	"github.com/kmrl/documind/internal/infrastructure/extractor/plaintext"
	"github.com/kmrl/documind/internal/infrastructure/imaging"
)

type Options struct {
	MaxPDFPages       int
	MinImageDimension int
	Logger            *slog.Logger
}

type Extractor struct {
	ocr       ports.OCREngine
	pdfOCR    ports.PDFRecognizer
	plaintext *plaintext.Extractor

	maxPDFPages int
	minImageDim int
	logger      *slog.Logger
}

// NewExtractor wires the OCR engines. pdfOCR may be nil, in which case scanned PDFs are rejected.
func NewExtractor(ocr ports.OCREngine, pdfOCR ports.PDFRecognizer, opts Options) *Extractor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		ocr:         ocr,
		pdfOCR:      pdfOCR,
		plaintext:   plaintext.NewExtractor(),
		maxPDFPages: opts.MaxPDFPages,
		minImageDim: opts.MinImageDimension,
		logger:      logger,
	}
}

func (e *Extractor) Extract(ctx context.Context, upload domain.Upload, kind domain.FileKind, method domain.OCRMethod) (domain.OCRResult, error) {
	switch kind {
	case domain.FileKindImage:
		return e.extractImage(ctx, upload, method)
	case domain.FileKindPDF:
		return e.extractPDF(ctx, upload, method)
	case domain.FileKindWord:
		return e.extractStructured(upload, "docx", docxText)
	case domain.FileKindSpreadsheet:
		return e.extractStructured(upload, "xlsx", xlsxText)
	case domain.FileKindText:
		return e.plaintext.Extract(ctx, upload)
	default:
		return domain.OCRResult{}, domain.WrapError(domain.ErrUnsupportedMedia, "extract text", fmt.Errorf("file kind %q", kind))
	}
}

func (e *Extractor) extractImage(ctx context.Context, upload domain.Upload, method domain.OCRMethod) (domain.OCRResult, error) {
	start := time.Now()
	info, err := imaging.Inspect(upload.Data)
	if err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrUnprocessable, "read image", err)
	}
	if e.minImageDim > 0 && (info.Width < e.minImageDim || info.Height < e.minImageDim) {
		return domain.OCRResult{}, domain.WrapError(
			domain.ErrInvalidInput,
			"read image",
			fmt.Errorf("image is %dx%d px; minimum is %dx%d", info.Width, info.Height, e.minImageDim, e.minImageDim),
		)
	}
	if e.ocr == nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrTemporary, "ocr image", fmt.Errorf("no ocr engine configured"))
	}

	prepared, err := imaging.Preprocess(upload.Data)
	if err != nil {
		e.logger.Warn("image_preprocess_failed", "filename", upload.Filename, "error", err)
		prepared = upload.Data
	}

	res, err := e.ocr.RecognizeImage(ctx, prepared, method)
	if err != nil {
		return domain.OCRResult{}, err
	}
	res.PageCount = 1
	res.ProcessingTimeSeconds = time.Since(start).Seconds()
	return res, nil
}

func (e *Extractor) extractStructured(upload domain.Upload, method string, fn func([]byte) (string, error)) (domain.OCRResult, error) {
	start := time.Now()
	text, err := fn(upload.Data)
	if err != nil {
		return domain.OCRResult{}, domain.WrapError(domain.ErrUnprocessable, "extract "+method, err)
	}
	return domain.OCRResult{
		Text:                  text,
		Confidence:            1.0,
		Method:                method,
		ProcessingTimeSeconds: time.Since(start).Seconds(),
	}, nil
}
