package ports

import (
	"context"
	"io"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
)

// ProcessingStore persists processing records between the two pipeline phases.
type ProcessingStore interface {
	Save(ctx context.Context, rec *domain.ProcessingRecord) error
	GetByID(ctx context.Context, id string) (*domain.ProcessingRecord, error)
	UpdateClassification(ctx context.Context, id string, status domain.ClassificationStatus, cls *domain.ClassificationResult, errMessage string) error
}

// ObjectStorage archives original uploads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type EventPublisher interface {
	PublishProcessingCompleted(ctx context.Context, event domain.ProcessingCompletedEvent) error
}

type EventSubscriber interface {
	SubscribeProcessingCompleted(ctx context.Context, handler func(context.Context, domain.ProcessingCompletedEvent) error) error
}

// OCREngine recognizes text in a single raster image.
type OCREngine interface {
	RecognizeImage(ctx context.Context, image []byte, method domain.OCRMethod) (domain.OCRResult, error)
}

// PDFRecognizer OCRs scanned PDFs that carry no embedded text layer.
type PDFRecognizer interface {
	RecognizePDF(ctx context.Context, data []byte, pageCount int, method domain.OCRMethod) (domain.OCRResult, error)
}

// TextExtractor turns an upload of a known kind into text.
type TextExtractor interface {
	Extract(ctx context.Context, upload domain.Upload, kind domain.FileKind, method domain.OCRMethod) (domain.OCRResult, error)
}

type LanguageDetector interface {
	Detect(ctx context.Context, text string) (domain.LanguageDetection, error)
}

type Translator interface {
	Translate(ctx context.Context, text, target, source string) (string, error)
	SupportedLanguages(ctx context.Context, displayLanguage string) ([]domain.Language, error)
}

type TextClassifier interface {
	Classify(ctx context.Context, text string) (domain.ClassificationResult, error)
}

// PipelineObserver receives per-stage timings. Implementations must tolerate concurrent calls.
type PipelineObserver interface {
	ObserveStage(stage string, duration time.Duration, err error)
	ObserveClassification(method, category string)
}
