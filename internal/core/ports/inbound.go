package ports

import (
	"context"
	"io"

	"github.com/kmrl/documind/internal/core/domain"
)

// DocumentProcessor is the inbound contract for the OCR → language → translation → classification pipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, upload domain.Upload, opts domain.ProcessOptions) (*domain.ProcessingResult, error)
	ExtractText(ctx context.Context, upload domain.Upload, method domain.OCRMethod) (*domain.OCRResult, error)
	ClassifyDocument(ctx context.Context, upload domain.Upload, method domain.OCRMethod, minConfidence float64) (*domain.ProcessingResult, error)
}

// ProcessingClassifier runs the second, deferred classification phase against stored OCR output.
type ProcessingClassifier interface {
	ClassifyProcessing(ctx context.Context, processingID string, req domain.ClassifyRequest) (*domain.ClassificationResult, error)
	PrepareClassification(ctx context.Context, processingID string) error
}

// TextClassificationService is the stateless classification contract.
type TextClassificationService interface {
	ClassifyText(ctx context.Context, text string, minConfidence float64) (*domain.ClassificationResult, error)
}

type LanguageService interface {
	DetectLanguage(ctx context.Context, text string) (*domain.LanguageDetection, error)
	Translate(ctx context.Context, text, target, source string) (*domain.TranslationResult, error)
	SupportedLanguages(ctx context.Context) ([]domain.Language, error)
}

// ProcessingReader is the read model for stored processing records.
type ProcessingReader interface {
	GetByID(ctx context.Context, id string) (*domain.ProcessingRecord, error)
}

// OriginalReader serves archived uploads of stored runs.
type OriginalReader interface {
	OpenOriginal(ctx context.Context, processingID string) (io.ReadCloser, *domain.ProcessingRecord, error)
}
