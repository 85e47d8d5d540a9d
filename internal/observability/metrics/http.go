package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "documind"

// HTTPServerMetrics owns the API registry: request metrics plus the pipeline observer.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	pipeline *PipelineMetrics

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	rejected    *prometheus.CounterVec
	uploadBytes *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &HTTPServerMetrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests served, by route and status.",
		}, []string{"service", "method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request duration in seconds. OCR-bound routes land in the upper buckets.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"service", "method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
			Help:        "HTTP requests currently being served.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "rejected_total",
			Help: "Requests rejected by traffic control, by reason.",
		}, []string{"service", "reason"}),
		uploadBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "upload_bytes",
			Help:    "Declared request body size of document uploads.",
			Buckets: prometheus.ExponentialBuckets(16<<10, 4, 8),
		}, []string{"service", "path"}),
	}
	registry.MustRegister(m.requests, m.latency, m.inFlight, m.rejected, m.uploadBytes)
	m.pipeline = newPipelineMetrics(registry, service)
	return m
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Pipeline returns the stage observer sharing this registry.
func (m *HTTPServerMetrics) Pipeline() *PipelineMetrics {
	return m.pipeline
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		route := normalizePath(r.URL.Path)
		if isUploadRoute(r.Method, route) && r.ContentLength > 0 {
			m.uploadBytes.WithLabelValues(service, route).Observe(float64(r.ContentLength))
		}

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		m.inFlight.Inc()
		defer m.inFlight.Dec()
		next.ServeHTTP(rec, r)

		m.requests.WithLabelValues(service, r.Method, route, strconv.Itoa(rec.statusCode)).Inc()
		m.latency.WithLabelValues(service, r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordRejected counts requests turned away with 429 or 503 before reaching a handler.
func (m *HTTPServerMetrics) RecordRejected(service, reason string) {
	m.rejected.WithLabelValues(service, reason).Inc()
}

// normalizePath folds processing ids out of the route so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/documents/classify/"):
		return "/api/documents/classify/{processing_id}"
	case path == "/api/documents/process":
		return path
	case strings.HasPrefix(path, "/api/documents/"):
		return "/api/documents/{processing_id}"
	default:
		return path
	}
}

func isUploadRoute(method, route string) bool {
	if method != http.MethodPost {
		return false
	}
	switch route {
	case "/api/documents/process", "/api/ocr/extract-text", "/api/classification/document":
		return true
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
