package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
)

const maxStoredTextChars = 50000

type ProcessConfig struct {
	MaxUploadBytes        int64
	DefaultTargetLanguage string
}

// ProcessDependencies lists the pipeline collaborators. Storage and Events may be nil.
type ProcessDependencies struct {
	Extractor      ports.TextExtractor
	Languages      *LanguageUseCase
	Classification *ClassificationUseCase
	Store          ports.ProcessingStore
	Storage        ports.ObjectStorage
	Events         ports.EventPublisher
	Observer       ports.PipelineObserver
	Logger         *slog.Logger
}

type ProcessUseCase struct {
	extractor      ports.TextExtractor
	languages      *LanguageUseCase
	classification *ClassificationUseCase
	store          ports.ProcessingStore
	storage        ports.ObjectStorage
	events         ports.EventPublisher
	observer       ports.PipelineObserver
	logger         *slog.Logger
	cfg            ProcessConfig

	now   func() time.Time
	newID func() string
}

func NewProcessUseCase(deps ProcessDependencies, cfg ProcessConfig) *ProcessUseCase {
	observer := deps.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.DefaultTargetLanguage) == "" {
		cfg.DefaultTargetLanguage = "en"
	}
	return &ProcessUseCase{
		extractor:      deps.Extractor,
		languages:      deps.Languages,
		classification: deps.Classification,
		store:          deps.Store,
		storage:        deps.Storage,
		events:         deps.Events,
		observer:       observer,
		logger:         logger,
		cfg:            cfg,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          uuid.NewString,
	}
}

// Process runs OCR, language detection, optional translation and optional classification. Only
// upload validation aborts; every later failure is recorded on the sub-result it belongs to.
func (uc *ProcessUseCase) Process(ctx context.Context, upload domain.Upload, opts domain.ProcessOptions) (*domain.ProcessingResult, error) {
	return uc.run(ctx, upload, opts, 0)
}

func (uc *ProcessUseCase) ClassifyDocument(ctx context.Context, upload domain.Upload, method domain.OCRMethod, minConfidence float64) (*domain.ProcessingResult, error) {
	if err := validateMinConfidence(minConfidence); err != nil {
		return nil, err
	}
	return uc.run(ctx, upload, domain.ProcessOptions{
		OCRMethod:             method,
		IncludeClassification: true,
	}, minConfidence)
}

// ExtractText is OCR only: nothing is stored and extraction failures are returned as errors.
func (uc *ProcessUseCase) ExtractText(ctx context.Context, upload domain.Upload, method domain.OCRMethod) (*domain.OCRResult, error) {
	kind, err := validateUpload(upload, uc.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	method, err = normalizeMethod(method)
	if err != nil {
		return nil, err
	}
	ocr, err := uc.extract(ctx, upload, kind, method)
	if err != nil {
		return nil, err
	}
	return &ocr, nil
}

func (uc *ProcessUseCase) run(ctx context.Context, upload domain.Upload, opts domain.ProcessOptions, minConfidence float64) (*domain.ProcessingResult, error) {
	start := uc.now()
	kind, err := validateUpload(upload, uc.cfg.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	opts, err = uc.normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	id := uc.newID()
	logger := uc.logger.With("processing_id", id)
	res := &domain.ProcessingResult{
		ProcessingInfo: domain.ProcessingInfo{
			ProcessingID:    id,
			Filename:        upload.Filename,
			FileType:        upload.ContentType,
			FileKind:        kind,
			FileSize:        upload.Size(),
			UploadTimestamp: start,
			Errors:          []string{},
		},
	}

	ocr, err := uc.extract(ctx, upload, kind, opts.OCRMethod)
	if err != nil {
		if isRejection(err) {
			return nil, err
		}
		logger.Warn("ocr_failed", "stage", "ocr", "error", err)
		ocr = domain.OCRResult{Method: string(opts.OCRMethod), Error: err.Error()}
	}
	res.OCR = ocr

	uc.archive(ctx, upload, res, logger)
	text := ocr.Text

	res.LanguageDetection = uc.detectLanguage(ctx, text, logger)

	if opts.IncludeTranslation && text != "" {
		res.Translation = uc.languages.translate(ctx, text, res.LanguageDetection.LanguageCode, opts.TargetLanguage)
	}
	if opts.IncludeClassification && text != "" {
		res.Classification = uc.classifyInline(ctx, text, res.Translation, minConfidence, logger)
	}

	res.ProcessingInfo.Success = res.OCR.Error == ""
	res.ProcessingInfo.ProcessingTimeSeconds = uc.now().Sub(start).Seconds()

	rec := uc.persist(ctx, res, text, logger)
	if rec != nil && res.Classification == nil && text != "" {
		if err := uc.publish(ctx, res, logger); err != nil {
			uc.resave(ctx, rec, res, logger)
		}
	}

	logger.Info(
		"document_processed",
		"filename", upload.Filename,
		"file_kind", kind,
		"success", res.ProcessingInfo.Success,
		"language", res.LanguageDetection.LanguageCode,
		"duration_ms", uc.now().Sub(start).Milliseconds(),
	)
	return res, nil
}

func (uc *ProcessUseCase) normalizeOptions(opts domain.ProcessOptions) (domain.ProcessOptions, error) {
	method, err := normalizeMethod(opts.OCRMethod)
	if err != nil {
		return opts, err
	}
	opts.OCRMethod = method
	opts.TargetLanguage = domain.NormalizeLanguageCode(opts.TargetLanguage)
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = domain.NormalizeLanguageCode(uc.cfg.DefaultTargetLanguage)
	}
	return opts, nil
}

func normalizeMethod(method domain.OCRMethod) (domain.OCRMethod, error) {
	if method == "" {
		return domain.OCRMethodDocument, nil
	}
	if !method.Valid() {
		return "", domain.WrapError(domain.ErrInvalidInput, "validate ocr_method", fmt.Errorf("unknown ocr_method %q; use document or text", method))
	}
	return method, nil
}

// isRejection reports extraction errors that describe the input itself rather than a processing failure.
func isRejection(err error) bool {
	return domain.IsKind(err, domain.ErrInvalidInput) ||
		domain.IsKind(err, domain.ErrTooLarge) ||
		domain.IsKind(err, domain.ErrUnsupportedMedia)
}

func (uc *ProcessUseCase) archive(ctx context.Context, upload domain.Upload, res *domain.ProcessingResult, logger *slog.Logger) {
	if uc.storage == nil {
		return
	}
	key := storageKey(res.ProcessingInfo.ProcessingID, upload.Filename)
	started := time.Now()
	err := uc.storage.Save(ctx, key, bytes.NewReader(upload.Data))
	uc.observer.ObserveStage("archive", time.Since(started), err)
	if err != nil {
		logger.Warn("archive_failed", "stage", "archive", "error", err)
		res.ProcessingInfo.Errors = append(res.ProcessingInfo.Errors, fmt.Sprintf("archive upload: %v", err))
		return
	}
	res.ProcessingInfo.StorageKey = key
}

// OpenOriginal returns the archived upload of a stored run together with its record. The caller closes the reader.
func (uc *ProcessUseCase) OpenOriginal(ctx context.Context, processingID string) (io.ReadCloser, *domain.ProcessingRecord, error) {
	const op = "open original upload"
	processingID = strings.TrimSpace(processingID)
	if processingID == "" {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, op, errors.New("processing id is required"))
	}
	if uc.store == nil {
		return nil, nil, domain.WrapError(domain.ErrNotFound, op, errors.New("processing records are not stored"))
	}
	rec, err := uc.store.GetByID(ctx, processingID)
	if err != nil {
		return nil, nil, fmt.Errorf("load processing record: %w", err)
	}
	key := rec.Result.ProcessingInfo.StorageKey
	if uc.storage == nil || key == "" {
		return nil, nil, domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("no archived upload for processing %s", processingID))
	}
	body, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return body, rec, nil
}

func (uc *ProcessUseCase) extract(ctx context.Context, upload domain.Upload, kind domain.FileKind, method domain.OCRMethod) (domain.OCRResult, error) {
	started := time.Now()
	ocr, err := uc.extractor.Extract(ctx, upload, kind, method)
	uc.observer.ObserveStage("ocr", time.Since(started), err)
	if err != nil {
		return domain.OCRResult{}, fmt.Errorf("extract text: %w", err)
	}

	ocr.Text = CleanText(ocr.Text)
	ocr.CharacterCount = utf8.RuneCountInString(ocr.Text)
	ocr.WordCount = len(strings.Fields(ocr.Text))
	if ocr.ProcessingTimeSeconds == 0 {
		ocr.ProcessingTimeSeconds = time.Since(started).Seconds()
	}
	return ocr, nil
}

func (uc *ProcessUseCase) detectLanguage(ctx context.Context, text string, logger *slog.Logger) domain.LanguageDetection {
	det, err := uc.languages.detect(ctx, text)
	if err != nil {
		logger.Warn("language_detection_failed", "stage", "language_detection", "error", err)
		return unknownLanguage(err.Error())
	}
	return det
}

func (uc *ProcessUseCase) classifyInline(
	ctx context.Context,
	text string,
	translation *domain.TranslationResult,
	minConfidence float64,
	logger *slog.Logger,
) *domain.ClassificationResult {
	source := domain.TextSourceOriginal
	if translation.Usable() {
		text = translation.TranslatedText
		source = domain.TextSourceTranslation
	}

	res, err := uc.classification.classify(ctx, text)
	if err != nil {
		logger.Warn("classification_failed", "stage", "classification", "error", err)
		return &domain.ClassificationResult{
			Category:   domain.CategoryUnknown,
			Method:     domain.MethodNone,
			TextSource: source,
			Error:      err.Error(),
		}
	}
	res.TextSource = source
	res.ApplyThreshold(minConfidence)
	return &res
}

// persist stores the record and returns it, or nil when there is no store or the save failed.
func (uc *ProcessUseCase) persist(ctx context.Context, res *domain.ProcessingResult, text string, logger *slog.Logger) *domain.ProcessingRecord {
	if uc.store == nil {
		return nil
	}
	now := uc.now()
	rec := &domain.ProcessingRecord{
		ID:                   res.ProcessingInfo.ProcessingID,
		Filename:             res.ProcessingInfo.Filename,
		FileKind:             res.ProcessingInfo.FileKind,
		Text:                 truncateRunes(text, maxStoredTextChars),
		Result:               snapshotResult(res),
		ClassificationStatus: domain.ClassificationPending,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if res.Translation.Usable() {
		rec.TranslatedText = truncateRunes(res.Translation.TranslatedText, maxStoredTextChars)
	}
	if cls := res.Classification; cls != nil {
		rec.Classification = cls
		rec.ClassificationStatus = domain.ClassificationCompleted
		if cls.Error != "" {
			rec.ClassificationStatus = domain.ClassificationError
			rec.ClassificationError = cls.Error
		}
	}

	started := time.Now()
	err := uc.store.Save(ctx, rec)
	uc.observer.ObserveStage("persist", time.Since(started), err)
	if err != nil {
		logger.Warn("persist_failed", "stage", "persist", "error", err)
		res.ProcessingInfo.Errors = append(res.ProcessingInfo.Errors, fmt.Sprintf("store processing record: %v", err))
		return nil
	}
	return rec
}

// resave brings the stored result in line with errors raised after the first save.
func (uc *ProcessUseCase) resave(ctx context.Context, rec *domain.ProcessingRecord, res *domain.ProcessingResult, logger *slog.Logger) {
	rec.Result = snapshotResult(res)
	rec.UpdatedAt = uc.now()
	if err := uc.store.Save(ctx, rec); err != nil {
		logger.Warn("persist_failed", "stage", "persist", "error", err)
	}
}

func snapshotResult(res *domain.ProcessingResult) domain.ProcessingResult {
	out := *res
	out.ProcessingInfo.Errors = slices.Clone(res.ProcessingInfo.Errors)
	return out
}

func (uc *ProcessUseCase) publish(ctx context.Context, res *domain.ProcessingResult, logger *slog.Logger) error {
	if uc.events == nil {
		return nil
	}
	started := time.Now()
	err := uc.events.PublishProcessingCompleted(ctx, domain.ProcessingCompletedEvent{
		ProcessingID: res.ProcessingInfo.ProcessingID,
		CompletedAt:  uc.now(),
	})
	uc.observer.ObserveStage("publish", time.Since(started), err)
	if err != nil {
		logger.Warn("publish_failed", "stage", "publish", "error", err)
		res.ProcessingInfo.Errors = append(res.ProcessingInfo.Errors, fmt.Sprintf("publish processing event: %v", err))
	}
	return err
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
