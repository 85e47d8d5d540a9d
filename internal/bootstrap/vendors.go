package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kmrl/documind/internal/config"
	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
	"github.com/kmrl/documind/internal/infrastructure/classifier"
	"github.com/kmrl/documind/internal/infrastructure/google"
	"github.com/kmrl/documind/internal/infrastructure/llm/ollama"
	"github.com/kmrl/documind/internal/infrastructure/ocr/tesseract"
	"github.com/kmrl/documind/internal/infrastructure/resilience"
)

// vendors holds the cloud-backed adapters. Interface fields stay nil when a capability is absent.
type vendors struct {
	online  bool
	ocrName string

	ocr         ports.OCREngine
	pdfOCR      ports.PDFRecognizer
	detector    ports.LanguageDetector
	translator  ports.Translator
	categorizer classifier.VendorCategorizer
}

func newVendors(ctx context.Context, cfg config.Config, executor *resilience.Executor, logger *slog.Logger) (vendors, error) {
	v := vendors{translator: offlineTranslator{}}

	client, err := google.New(ctx, google.Options{
		APIKey:             cfg.GoogleAPIKey,
		CredentialsFile:    cfg.GoogleCredentialsFile,
		VisionURL:          cfg.GoogleVisionURL,
		TranslateURL:       cfg.GoogleTranslateURL,
		LanguageURL:        cfg.GoogleLanguageURL,
		Timeout:            cfg.GoogleTimeout,
		ResilienceExecutor: executor,
	})
	switch {
	case err == nil:
		v.online = true
		translation := google.NewTranslation(client)
		v.detector = translation
		v.translator = translation
		v.categorizer = google.NewNaturalLanguage(client)
	case errors.Is(err, google.ErrNoCredentials):
		logger.Warn("google_apis_disabled", "error", err)
	default:
		return vendors{}, fmt.Errorf("init google client: %w", err)
	}

	switch strings.ToLower(cfg.OCREngine) {
	case "tesseract":
		engine, err := tesseract.New(cfg.TesseractLanguages)
		if err != nil {
			return vendors{}, fmt.Errorf("init tesseract: %w", err)
		}
		v.ocr = engine
		v.ocrName = "tesseract"
		if v.online {
			v.pdfOCR = google.NewVisionOCR(client)
		}
	case "", "google":
		if !v.online {
			logger.Warn("ocr_unavailable", "reason", "google credentials missing; only text-layer documents can be processed")
			v.ocrName = "none"
			break
		}
		vision := google.NewVisionOCR(client)
		v.ocr = vision
		v.pdfOCR = vision
		v.ocrName = "google-vision"
	default:
		return vendors{}, fmt.Errorf("unknown OCR_ENGINE %q", cfg.OCREngine)
	}
	return v, nil
}

// newTextClassifier layers the optional LLM classifier over the vendor/keyword classifier.
func newTextClassifier(cfg config.Config, taxonomy domain.Taxonomy, categorizer classifier.VendorCategorizer, executor *resilience.Executor, logger *slog.Logger) (ports.TextClassifier, error) {
	base := classifier.New(taxonomy, categorizer)
	switch strings.ToLower(cfg.ClassifierBackend) {
	case "", "auto":
		return base, nil
	case "keyword":
		return classifier.New(taxonomy, nil), nil
	case "ollama":
		client := ollama.New(ollama.Options{
			BaseURL:            cfg.OllamaURL,
			Model:              cfg.OllamaModel,
			Timeout:            cfg.OllamaTimeout,
			ResilienceExecutor: executor,
		})
		return ollama.NewClassifier(client, taxonomy, base, logger), nil
	default:
		return nil, fmt.Errorf("unknown CLASSIFIER_BACKEND %q", cfg.ClassifierBackend)
	}
}

// offlineTranslator stands in when no Google credentials are configured.
type offlineTranslator struct{}

var errTranslationOffline = errors.New("translation api is not configured")

func (offlineTranslator) Translate(context.Context, string, string, string) (string, error) {
	return "", domain.WrapError(domain.ErrTemporary, "translate", errTranslationOffline)
}

func (offlineTranslator) SupportedLanguages(context.Context, string) ([]domain.Language, error) {
	return nil, errTranslationOffline
}
