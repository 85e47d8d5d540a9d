package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/kmrl/documind/internal/config"
	"github.com/kmrl/documind/internal/core/domain"
)

func testConfig() config.Config {
	return config.Config{
		StoreBackend:          "memory",
		OCREngine:             "google",
		GoogleAPIKey:          "test-key",
		GoogleVisionURL:       "http://127.0.0.1:1",
		GoogleTranslateURL:    "http://127.0.0.1:1",
		GoogleLanguageURL:     "http://127.0.0.1:1",
		MaxUploadBytes:        1 << 20,
		DefaultTargetLanguage: "en",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWiresMemoryPipeline(t *testing.T) {
	app, err := New(context.Background(), testConfig(), quietLogger(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.ProcessUC == nil || app.ClassificationUC == nil || app.LanguageUC == nil || app.Store == nil {
		t.Fatalf("app not fully wired: %+v", app)
	}
	if app.Queue != nil {
		t.Fatalf("queue must stay nil when disabled")
	}

	res, err := app.ProcessUC.Process(context.Background(), domain.Upload{
		Filename: "circular.txt",
		Data:     []byte("Safety circular: fire drill at Aluva station"),
	}, domain.ProcessOptions{IncludeClassification: true})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if res.OCR.Text == "" || res.Classification == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := app.Store.GetByID(context.Background(), res.ProcessingInfo.ProcessingID); err != nil {
		t.Fatalf("record not stored: %v", err)
	}
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	cfg := testConfig()
	cfg.StoreBackend = "cassandra"
	if _, err := New(context.Background(), cfg, quietLogger(), nil); err == nil || !strings.Contains(err.Error(), "STORE_BACKEND") {
		t.Fatalf("expected store backend error, got %v", err)
	}

	cfg = testConfig()
	cfg.ArchiveUploads = true
	cfg.StorageBackend = "ftp"
	if _, err := New(context.Background(), cfg, quietLogger(), nil); err == nil || !strings.Contains(err.Error(), "STORAGE_BACKEND") {
		t.Fatalf("expected storage backend error, got %v", err)
	}

	cfg = testConfig()
	cfg.ClassifierBackend = "bert"
	if _, err := New(context.Background(), cfg, quietLogger(), nil); err == nil || !strings.Contains(err.Error(), "CLASSIFIER_BACKEND") {
		t.Fatalf("expected classifier backend error, got %v", err)
	}

	cfg = testConfig()
	cfg.OCREngine = "abbyy"
	if _, err := New(context.Background(), cfg, quietLogger(), nil); err == nil || !strings.Contains(err.Error(), "OCR_ENGINE") {
		t.Fatalf("expected ocr engine error, got %v", err)
	}
}

func TestNewRejectsQueueOverMemoryStore(t *testing.T) {
	for _, backend := range []string{"", "memory", "Memory"} {
		cfg := testConfig()
		cfg.QueueEnabled = true
		cfg.StoreBackend = backend
		if _, err := New(context.Background(), cfg, quietLogger(), nil); err == nil || !strings.Contains(err.Error(), "QUEUE_ENABLED") {
			t.Fatalf("backend %q: expected shared store error, got %v", backend, err)
		}
	}

	cfg := testConfig()
	cfg.QueueEnabled = true
	cfg.StoreBackend = "postgres"
	if err := checkSharedStore(cfg); err != nil {
		t.Fatalf("postgres should be accepted, got %v", err)
	}
}

func TestResilienceConfigKeepsDefaultsForUnset(t *testing.T) {
	cfg := testConfig()
	cfg.ResilienceRetryMaxAttempts = 5
	cfg.ResilienceBreakerOpenTimeout = time.Minute
	rc := resilienceConfig(cfg)
	if rc.RetryMaxAttempts != 5 || rc.BreakerOpenTimeout != time.Minute {
		t.Fatalf("unexpected config %+v", rc)
	}
	if rc.BreakerMinRequests != 10 || rc.BreakerFailureRatio != 0.5 {
		t.Fatalf("defaults lost: %+v", rc)
	}
}

func TestOfflineTranslatorIsTemporary(t *testing.T) {
	_, err := offlineTranslator{}.Translate(context.Background(), "x", "en", "ml")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestNewTextClassifierBackends(t *testing.T) {
	taxonomy := domain.Taxonomy{Categories: []domain.TaxonomyCategory{{Name: "Safety", Keywords: []string{"fire"}}}}
	for _, backend := range []string{"", "auto", "keyword", "ollama", "OLLAMA"} {
		cfg := testConfig()
		cfg.ClassifierBackend = backend
		cfg.OllamaURL = "http://127.0.0.1:1"
		c, err := newTextClassifier(cfg, taxonomy, nil, nil, quietLogger())
		if err != nil || c == nil {
			t.Fatalf("backend %q: classifier=%v err=%v", backend, c, err)
		}
	}
}

type stageOnlyObserver struct{}

func (stageOnlyObserver) ObserveStage(string, time.Duration, error) {}
func (stageOnlyObserver) ObserveClassification(string, string)      {}

type breakerAwareObserver struct {
	stageOnlyObserver
}

func (breakerAwareObserver) ObserveBreaker(string, string) {}

func TestExecutorOptionsAddBreakerObserverWhenSupported(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := len(executorOptions(logger, nil)); got != 1 {
		t.Fatalf("nil observer: %d options, want 1", got)
	}
	if got := len(executorOptions(logger, stageOnlyObserver{})); got != 1 {
		t.Fatalf("stage-only observer: %d options, want 1", got)
	}
	if got := len(executorOptions(logger, breakerAwareObserver{})); got != 2 {
		t.Fatalf("breaker-aware observer: %d options, want 2", got)
	}
}
