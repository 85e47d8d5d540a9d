package httpadapter

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kmrl/documind/internal/config"
	"github.com/kmrl/documind/internal/core/ports"
)

const serviceName = "documind-api"

// RequestMetrics is the HTTP metrics surface the router needs. A nil value disables metrics.
type RequestMetrics interface {
	Middleware(service string, next http.Handler) http.Handler
	RecordRejected(service, reason string)
	Handler() http.Handler
}

type Dependencies struct {
	Processor   ports.DocumentProcessor
	Phases      ports.ProcessingClassifier
	Classifier  ports.TextClassificationService
	Languages   ports.LanguageService
	Records     ports.ProcessingReader
	Originals   ports.OriginalReader
	Metrics     RequestMetrics
	Logger      *slog.Logger
	OpenAPISpec []byte
}

type Router struct {
	processor  ports.DocumentProcessor
	phases     ports.ProcessingClassifier
	classifier ports.TextClassificationService
	languages  ports.LanguageService
	records    ports.ProcessingReader
	originals  ports.OriginalReader
	metrics    RequestMetrics
	logger     *slog.Logger
	openapi    []byte

	maxUploadBytes    int64
	defaultTarget     string
	corsOrigins       []string
	rateLimitRPS      float64
	rateLimitBurst    int
	maxInFlight       int
	inFlightQueueWait time.Duration
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	target := cfg.DefaultTargetLanguage
	if target == "" {
		target = "en"
	}
	spec := deps.OpenAPISpec
	if len(spec) == 0 {
		spec = openAPIDocument
	}
	return &Router{
		processor:         deps.Processor,
		phases:            deps.Phases,
		classifier:        deps.Classifier,
		languages:         deps.Languages,
		records:           deps.Records,
		originals:         deps.Originals,
		metrics:           deps.Metrics,
		logger:            logger,
		openapi:           spec,
		maxUploadBytes:    maxUpload,
		defaultTarget:     target,
		corsOrigins:       cfg.CORSOrigins,
		rateLimitRPS:      cfg.APIRateLimitRPS,
		rateLimitBurst:    cfg.APIRateLimitBurst,
		maxInFlight:       cfg.APIMaxInFlight,
		inFlightQueueWait: cfg.APIQueueWait,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", rt.root)
	mux.HandleFunc("GET /health", rt.healthz)
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.json", rt.openAPI)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("GET /api/languages", rt.supportedLanguages)
	mux.HandleFunc("POST /api/ocr/extract-text", rt.extractText)
	mux.HandleFunc("POST /api/language/detect", rt.detectLanguage)
	mux.HandleFunc("POST /api/translation/translate", rt.translate)
	mux.HandleFunc("POST /api/documents/process", rt.processDocument)
	mux.HandleFunc("GET /api/documents/{processing_id}", rt.getProcessing)
	if rt.originals != nil {
		mux.HandleFunc("GET /api/documents/{processing_id}/file", rt.downloadOriginal)
	}
	mux.HandleFunc("POST /api/documents/classify/{processing_id}", rt.classifyProcessing)
	mux.HandleFunc("POST /api/classification/text", rt.classifyText)
	mux.HandleFunc("POST /api/classification/document", rt.classifyDocument)
	mux.HandleFunc("POST /classify/text", rt.classifyTextBare)
	mux.HandleFunc("/", rt.notFound)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.inFlightQueueWait, rt.onReject("backpressure"))
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.onReject("rate_limit"))
	handler = corsMiddleware(handler, rt.corsOrigins)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) onReject(reason string) func() {
	if rt.metrics == nil {
		return nil
	}
	return func() { rt.metrics.RecordRejected(serviceName, reason) }
}

func (rt *Router) root(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"service":     "DocuMind KMRL document processing API",
		"version":     "1.0.0",
		"status":      "operational",
		"description": "OCR, language detection, translation and classification for Kochi Metro Rail documents",
		"endpoints": map[string]string{
			"health":                  "/health",
			"ocr_only":                "/api/ocr/extract-text",
			"language_detection":      "/api/language/detect",
			"translation":             "/api/translation/translate",
			"full_processing":         "/api/documents/process",
			"processing_record":       "/api/documents/{processing_id}",
			"original_file":           "/api/documents/{processing_id}/file",
			"deferred_classification": "/api/documents/classify/{processing_id}",
			"classification":          "/api/classification/document",
			"text_classification":     "/api/classification/text",
			"supported_languages":     "/api/languages",
			"openapi":                 "/openapi.json",
		},
	})
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) notFound(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusNotFound, envelope{Error: "route not found: " + r.Method + " " + r.URL.Path})
}
