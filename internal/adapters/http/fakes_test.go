package httpadapter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kmrl/documind/internal/config"
	"github.com/kmrl/documind/internal/core/domain"
)

type processorFake struct {
	result   *domain.ProcessingResult
	err      error
	gotOpts  domain.ProcessOptions
	gotBytes int
}

func (f *processorFake) Process(_ context.Context, upload domain.Upload, opts domain.ProcessOptions) (*domain.ProcessingResult, error) {
	f.gotOpts = opts
	f.gotBytes = len(upload.Data)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *processorFake) ExtractText(_ context.Context, upload domain.Upload, _ domain.OCRMethod) (*domain.OCRResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.OCRResult{Text: string(upload.Data), Confidence: 0.9, Method: "document"}, nil
}

func (f *processorFake) ClassifyDocument(_ context.Context, _ domain.Upload, _ domain.OCRMethod, _ float64) (*domain.ProcessingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type phasesFake struct {
	result *domain.ClassificationResult
	err    error
	gotID  string
	gotReq domain.ClassifyRequest
}

func (f *phasesFake) ClassifyProcessing(_ context.Context, id string, req domain.ClassifyRequest) (*domain.ClassificationResult, error) {
	f.gotID = id
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *phasesFake) PrepareClassification(context.Context, string) error { return nil }

type classifierFake struct {
	err error
}

func (f classifierFake) ClassifyText(_ context.Context, text string, _ float64) (*domain.ClassificationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify text", errors.New("text is required"))
	}
	return &domain.ClassificationResult{Category: "Finance", Confidence: 0.8, Method: domain.MethodKeywordFallback}, nil
}

type languagesFake struct {
	translation *domain.TranslationResult
}

func (f languagesFake) DetectLanguage(_ context.Context, text string) (*domain.LanguageDetection, error) {
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "detect language", errors.New("text is required"))
	}
	return &domain.LanguageDetection{LanguageCode: "ml", LanguageName: "Malayalam", Confidence: 0.97, IsKMRLPrimary: true}, nil
}

func (f languagesFake) Translate(_ context.Context, text, target, source string) (*domain.TranslationResult, error) {
	if f.translation != nil {
		return f.translation, nil
	}
	return &domain.TranslationResult{OriginalText: text, TranslatedText: "translated", SourceLanguage: source, TargetLanguage: target}, nil
}

func (f languagesFake) SupportedLanguages(context.Context) ([]domain.Language, error) {
	return domain.FallbackLanguages(), nil
}

type recordsFake struct {
	records map[string]*domain.ProcessingRecord
}

func (f recordsFake) GetByID(_ context.Context, id string) (*domain.ProcessingRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get processing record", errors.New("id="+id))
	}
	return rec, nil
}

type originalsFake struct {
	files map[string]string
}

func (f originalsFake) OpenOriginal(_ context.Context, id string) (io.ReadCloser, *domain.ProcessingRecord, error) {
	body, ok := f.files[id]
	if !ok {
		return nil, nil, domain.WrapError(domain.ErrNotFound, "open original upload", errors.New("id="+id))
	}
	return io.NopCloser(strings.NewReader(body)), &domain.ProcessingRecord{ID: id, Filename: "memo scan.png"}, nil
}

type testRouter struct {
	processor *processorFake
	phases    *phasesFake
	handler   http.Handler
}

func newTestRouter(cfg config.Config, mutate func(*Dependencies)) testRouter {
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 1024
	}
	processor := &processorFake{result: &domain.ProcessingResult{
		OCR:            domain.OCRResult{Text: "hello", Confidence: 0.9},
		ProcessingInfo: domain.ProcessingInfo{ProcessingID: "proc-0001", Filename: "memo.png", Success: true, Errors: []string{}},
	}}
	phases := &phasesFake{result: &domain.ClassificationResult{Category: "Safety", Confidence: 0.7, TextSource: domain.TextSourceTranslation}}
	deps := Dependencies{
		Processor:  processor,
		Phases:     phases,
		Classifier: classifierFake{},
		Languages:  languagesFake{},
		Records: recordsFake{records: map[string]*domain.ProcessingRecord{
			"proc-0001": {ID: "proc-0001", Filename: "memo.png", ClassificationStatus: domain.ClassificationPending},
		}},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(&deps)
	}
	return testRouter{processor: processor, phases: phases, handler: NewRouter(cfg, deps).Handler()}
}
