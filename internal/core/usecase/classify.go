package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
)

const (
	maxClassificationChars = 100000
	minProcessingIDLength  = 5
)

type ClassificationUseCase struct {
	classifier ports.TextClassifier
	store      ports.ProcessingStore
	observer   ports.PipelineObserver
	logger     *slog.Logger
}

func NewClassificationUseCase(
	classifier ports.TextClassifier,
	store ports.ProcessingStore,
	observer ports.PipelineObserver,
	logger *slog.Logger,
) *ClassificationUseCase {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassificationUseCase{
		classifier: classifier,
		store:      store,
		observer:   observer,
		logger:     logger,
	}
}

func (uc *ClassificationUseCase) ClassifyText(ctx context.Context, text string, minConfidence float64) (*domain.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify text", errors.New("text is required"))
	}
	if err := validateMinConfidence(minConfidence); err != nil {
		return nil, err
	}
	res, err := uc.classify(ctx, text)
	if err != nil {
		return nil, err
	}
	res.TextSource = domain.TextSourceOriginal
	res.ApplyThreshold(minConfidence)
	return &res, nil
}

// ClassifyProcessing runs phase two against a stored record. Text in the request overrides the stored
// OCR text; without an override a classification already produced by the worker is returned as is.
func (uc *ClassificationUseCase) ClassifyProcessing(ctx context.Context, processingID string, req domain.ClassifyRequest) (*domain.ClassificationResult, error) {
	processingID = strings.TrimSpace(processingID)
	if len(processingID) < minProcessingIDLength {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify processing", fmt.Errorf("invalid processing id %q", processingID))
	}
	if err := validateMinConfidence(req.MinConfidence); err != nil {
		return nil, err
	}

	rec, err := uc.store.GetByID(ctx, processingID)
	if err != nil {
		return nil, fmt.Errorf("load processing record: %w", err)
	}

	text, source := overrideText(req)
	if text == "" {
		if rec.ClassificationStatus == domain.ClassificationCompleted && rec.Classification != nil {
			cached := *rec.Classification
			cached.ApplyThreshold(req.MinConfidence)
			return &cached, nil
		}
		text, source = rec.ClassificationText()
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrUnprocessable, "classify processing", errors.New("no extracted text to classify"))
	}

	res, err := uc.classify(ctx, text)
	if err != nil {
		uc.markClassification(ctx, processingID, domain.ClassificationError, nil, err.Error())
		return nil, err
	}
	res.TextSource = source
	uc.markClassification(ctx, processingID, domain.ClassificationCompleted, &res, "")

	out := res
	out.ApplyThreshold(req.MinConfidence)
	return &out, nil
}

// PrepareClassification is the worker side of phase two. Already classified records are left untouched.
func (uc *ClassificationUseCase) PrepareClassification(ctx context.Context, processingID string) error {
	rec, err := uc.store.GetByID(ctx, processingID)
	if err != nil {
		return fmt.Errorf("load processing record: %w", err)
	}
	if rec.ClassificationStatus == domain.ClassificationCompleted {
		return nil
	}

	if err := uc.store.UpdateClassification(ctx, processingID, domain.ClassificationLoading, nil, ""); err != nil {
		return fmt.Errorf("set classification_status=loading: %w", err)
	}

	text, source := rec.ClassificationText()
	if strings.TrimSpace(text) == "" {
		uc.markClassification(ctx, processingID, domain.ClassificationError, nil, "no extracted text to classify")
		return nil
	}

	res, err := uc.classify(ctx, text)
	if err != nil {
		if markErr := uc.store.UpdateClassification(ctx, processingID, domain.ClassificationError, nil, err.Error()); markErr != nil {
			return fmt.Errorf("%w; mark classification error: %v", err, markErr)
		}
		return err
	}
	res.TextSource = source
	if err := uc.store.UpdateClassification(ctx, processingID, domain.ClassificationCompleted, &res, ""); err != nil {
		return fmt.Errorf("save classification: %w", err)
	}
	return nil
}

func (uc *ClassificationUseCase) classify(ctx context.Context, text string) (domain.ClassificationResult, error) {
	if utf8.RuneCountInString(text) > maxClassificationChars {
		text = string([]rune(text)[:maxClassificationChars])
	}
	start := time.Now()
	res, err := uc.classifier.Classify(ctx, text)
	uc.observer.ObserveStage("classification", time.Since(start), err)
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("classify text: %w", err)
	}
	if res.ProcessingTimeSeconds == 0 {
		res.ProcessingTimeSeconds = time.Since(start).Seconds()
	}
	uc.observer.ObserveClassification(res.Method, res.Category)
	return res, nil
}

func (uc *ClassificationUseCase) markClassification(
	ctx context.Context,
	processingID string,
	status domain.ClassificationStatus,
	res *domain.ClassificationResult,
	errMessage string,
) {
	if err := uc.store.UpdateClassification(ctx, processingID, status, res, errMessage); err != nil {
		uc.logger.Warn("classification_store_failed", "processing_id", processingID, "status", status, "error", err)
	}
}

func overrideText(req domain.ClassifyRequest) (string, string) {
	if strings.TrimSpace(req.Translation) != "" {
		return req.Translation, domain.TextSourceTranslation
	}
	if strings.TrimSpace(req.Text) != "" {
		return req.Text, domain.TextSourceOriginal
	}
	return "", ""
}

func validateMinConfidence(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return domain.WrapError(domain.ErrInvalidInput, "validate min_confidence", fmt.Errorf("min_confidence %v outside [0, 1]", v))
	}
	return nil
}
