package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kmrl/documind/internal/config"
	"github.com/kmrl/documind/internal/core/ports"
	"github.com/kmrl/documind/internal/core/usecase"
	"github.com/kmrl/documind/internal/infrastructure/classifier"
	"github.com/kmrl/documind/internal/infrastructure/extractor/document"
	"github.com/kmrl/documind/internal/infrastructure/langdetect"
	"github.com/kmrl/documind/internal/infrastructure/queue/nats"
	"github.com/kmrl/documind/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Store ports.ProcessingStore
	// Queue is nil unless QUEUE_ENABLED is set.
	Queue *nats.Queue

	ProcessUC        *usecase.ProcessUseCase
	ClassificationUC *usecase.ClassificationUseCase
	LanguageUC       *usecase.LanguageUseCase

	closers []func()
}

// New wires every adapter from cfg. observer receives pipeline stage timings and may be nil.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer ports.PipelineObserver) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := checkSharedStore(cfg); err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger}
	executor := resilience.NewExecutor(resilienceConfig(cfg), executorOptions(logger, observer)...)

	store, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Store = store

	archive, err := app.openArchive(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	var publisher ports.EventPublisher
	if cfg.QueueEnabled {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			HandlerTimeout:     cfg.WorkerProcessTimeout,
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.Queue = queue
		app.closers = append(app.closers, queue.Close)
		publisher = queue
	}

	vendors, err := newVendors(ctx, cfg, executor, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	taxonomy, err := classifier.LoadTaxonomy(cfg.TaxonomyPath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	extractor := document.NewExtractor(vendors.ocr, vendors.pdfOCR, document.Options{
		MaxPDFPages:       cfg.MaxPDFPages,
		MinImageDimension: cfg.MinImageDimension,
		Logger:            logger,
	})
	detector := langdetect.NewFallback(vendors.detector, langdetect.NewScriptDetector())

	app.LanguageUC = usecase.NewLanguageUseCase(detector, vendors.translator, observer, logger)
	textClassifier, err := newTextClassifier(cfg, taxonomy, vendors.categorizer, executor, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.ClassificationUC = usecase.NewClassificationUseCase(textClassifier, store, observer, logger)
	app.ProcessUC = usecase.NewProcessUseCase(usecase.ProcessDependencies{
		Extractor:      extractor,
		Languages:      app.LanguageUC,
		Classification: app.ClassificationUC,
		Store:          store,
		Storage:        archive,
		Events:         publisher,
		Observer:       observer,
		Logger:         logger,
	}, usecase.ProcessConfig{
		MaxUploadBytes:        cfg.MaxUploadBytes,
		DefaultTargetLanguage: cfg.DefaultTargetLanguage,
	})

	logger.Info("app_wired",
		"store", cfg.StoreBackend,
		"cache", cfg.RedisAddr != "",
		"archive", cfg.ArchiveUploads,
		"queue", cfg.QueueEnabled,
		"ocr_engine", vendors.ocrName,
		"vendor_apis", vendors.online,
		"classifier", cfg.ClassifierBackend,
	)
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// breakerObserver is implemented by pipeline observers that also track vendor breakers.
type breakerObserver interface {
	ObserveBreaker(operation, state string)
}

func executorOptions(logger *slog.Logger, observer ports.PipelineObserver) []resilience.Option {
	opts := []resilience.Option{resilience.WithLogger(logger)}
	if bo, ok := observer.(breakerObserver); ok {
		opts = append(opts, resilience.WithBreakerObserver(bo.ObserveBreaker))
	}
	return opts
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	rc.RetryInitialBackoff = cfg.ResilienceRetryInitialBackoff
	rc.RetryMaxBackoff = cfg.ResilienceRetryMaxBackoff
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	if cfg.ResilienceBreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.ResilienceBreakerMinRequests)
	}
	rc.BreakerOpenTimeout = cfg.ResilienceBreakerOpenTimeout
	return rc
}
