package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
)

const (
	maxTranslationChars = 10000
	languageDisplay     = "en"
)

type LanguageUseCase struct {
	detector   ports.LanguageDetector
	translator ports.Translator
	observer   ports.PipelineObserver
	logger     *slog.Logger
}

func NewLanguageUseCase(detector ports.LanguageDetector, translator ports.Translator, observer ports.PipelineObserver, logger *slog.Logger) *LanguageUseCase {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LanguageUseCase{
		detector:   detector,
		translator: translator,
		observer:   observer,
		logger:     logger,
	}
}

func (uc *LanguageUseCase) DetectLanguage(ctx context.Context, text string) (*domain.LanguageDetection, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "detect language", errors.New("text is required"))
	}
	det, err := uc.detect(ctx, text)
	if err != nil {
		return nil, err
	}
	return &det, nil
}

// detect never fails on blank text; it reports the unknown language instead.
func (uc *LanguageUseCase) detect(ctx context.Context, text string) (domain.LanguageDetection, error) {
	if strings.TrimSpace(text) == "" {
		return unknownLanguage(""), nil
	}
	start := time.Now()
	det, err := uc.detector.Detect(ctx, text)
	uc.observer.ObserveStage("language_detection", time.Since(start), err)
	if err != nil {
		return domain.LanguageDetection{}, fmt.Errorf("detect language: %w", err)
	}
	det.LanguageCode = domain.NormalizeLanguageCode(det.LanguageCode)
	if det.LanguageName == "" {
		det.LanguageName = domain.LanguageName(det.LanguageCode)
	}
	det.IsKMRLPrimary = domain.IsKMRLPrimary(det.LanguageCode)
	return det, nil
}

// Translate returns a skipped result when source and target match, and an error result when the
// source language cannot be determined. Neither case reaches the translator.
func (uc *LanguageUseCase) Translate(ctx context.Context, text, target, source string) (*domain.TranslationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "translate", errors.New("text is required"))
	}
	target = domain.NormalizeLanguageCode(target)
	if target == "" || target == domain.LanguageUnknown {
		return nil, domain.WrapError(domain.ErrInvalidInput, "translate", errors.New("target_language is required"))
	}

	source = domain.NormalizeLanguageCode(source)
	if source == "" {
		det, err := uc.detect(ctx, text)
		if err != nil {
			uc.logger.Warn("translation_source_detection_failed", "error", err)
			source = domain.LanguageUnknown
		} else {
			source = det.LanguageCode
		}
	}
	return uc.translate(ctx, text, source, target), nil
}

func (uc *LanguageUseCase) translate(ctx context.Context, text, source, target string) *domain.TranslationResult {
	res := &domain.TranslationResult{
		OriginalText:       text,
		SourceLanguage:     source,
		TargetLanguage:     target,
		SourceLanguageName: domain.LanguageName(source),
		TargetLanguageName: domain.LanguageName(target),
	}

	switch {
	case source == target:
		res.Skipped = true
		res.TranslatedText = text
		return res
	case source == domain.LanguageUnknown || source == "":
		res.Error = "source language could not be detected"
		return res
	}

	input := text
	if utf8.RuneCountInString(input) > maxTranslationChars {
		input = string([]rune(input)[:maxTranslationChars])
		res.Truncated = true
		res.Warning = fmt.Sprintf("text truncated to %d characters for translation", maxTranslationChars)
	}

	start := time.Now()
	translated, err := uc.translator.Translate(ctx, input, target, source)
	uc.observer.ObserveStage("translation", time.Since(start), err)
	if err != nil {
		uc.logger.Warn("translation_failed", "source", source, "target", target, "error", err)
		res.Error = err.Error()
		return res
	}
	res.TranslatedText = translated
	return res
}

// SupportedLanguages lists vendor languages with the KMRL primary ones first; on vendor failure it
// falls back to the primary set.
func (uc *LanguageUseCase) SupportedLanguages(ctx context.Context) ([]domain.Language, error) {
	langs, err := uc.translator.SupportedLanguages(ctx, languageDisplay)
	if err != nil || len(langs) == 0 {
		if err != nil {
			uc.logger.Warn("supported_languages_fallback", "error", err)
		}
		return domain.FallbackLanguages(), nil
	}
	for i := range langs {
		langs[i] = domain.NewLanguage(langs[i].Code, langs[i].Name)
	}
	return domain.SortLanguages(langs), nil
}

func unknownLanguage(errMessage string) domain.LanguageDetection {
	return domain.LanguageDetection{
		LanguageCode: domain.LanguageUnknown,
		LanguageName: domain.LanguageName(domain.LanguageUnknown),
		Error:        errMessage,
	}
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, error) {}
func (nopObserver) ObserveClassification(string, string)      {}
