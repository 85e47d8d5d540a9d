package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kmrl/documind/internal/core/domain"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/api/documents/process":          "/api/documents/process",
		"/api/documents/abc-123":          "/api/documents/{processing_id}",
		"/api/documents/classify/abc-123": "/api/documents/classify/{processing_id}",
		"/api/languages":                  "/api/languages",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMiddlewareRecordsStatus(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/p-1", nil))

	got := testutil.ToFloat64(m.requests.WithLabelValues("api", http.MethodGet, "/api/documents/{processing_id}", "404"))
	if got != 1 {
		t.Fatalf("requests_total = %v, want 1", got)
	}
}

func TestMiddlewareObservesDocumentUploadSize(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	upload := httptest.NewRequest(http.MethodPost, "/api/documents/process", strings.NewReader(strings.Repeat("x", 4096)))
	handler.ServeHTTP(httptest.NewRecorder(), upload)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/classification/text", strings.NewReader("{}")))

	if got := testutil.CollectAndCount(m.uploadBytes); got != 1 {
		t.Fatalf("upload histogram series = %d, want 1", got)
	}
}

func TestPipelineCountsFailuresOnly(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	p := m.Pipeline()
	p.ObserveStage("ocr", 20*time.Millisecond, nil)
	p.ObserveStage("ocr", 30*time.Millisecond, errors.New("vision down"))
	p.ObserveClassification("keyword", "Finance")

	if got := testutil.ToFloat64(p.stageFailures.WithLabelValues("api", "ocr")); got != 1 {
		t.Fatalf("stage failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.classifications.WithLabelValues("api", "keyword", "Finance")); got != 1 {
		t.Fatalf("classification outcomes = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "documind_pipeline_stage_duration_seconds") {
		t.Fatalf("stage histogram missing from exposition")
	}
}

func TestPipelineTracksBreakerState(t *testing.T) {
	p := NewHTTPServerMetrics("api").Pipeline()
	p.ObserveBreaker("google.vision", "open")
	if got := testutil.ToFloat64(p.breakerState.WithLabelValues("api", "google.vision")); got != 2 {
		t.Fatalf("open breaker gauge = %v, want 2", got)
	}
	p.ObserveBreaker("google.vision", "closed")
	if got := testutil.ToFloat64(p.breakerState.WithLabelValues("api", "google.vision")); got != 0 {
		t.Fatalf("closed breaker gauge = %v, want 0", got)
	}
}

func TestJobOutcomeByErrorKind(t *testing.T) {
	cases := map[string]error{
		OutcomeClassified: nil,
		OutcomeMissing:    domain.WrapError(domain.ErrNotFound, "load record", errors.New("gone")),
		OutcomeTemporary:  domain.WrapError(domain.ErrTemporary, "classify", errors.New("vendor down")),
		OutcomeFailed:     errors.New("boom"),
	}
	for want, err := range cases {
		if got := JobOutcome(err); got != want {
			t.Fatalf("JobOutcome(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestWorkerJobLifecycle(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartJob()
	if got := testutil.ToFloat64(m.inFlight); got != 1 {
		t.Fatalf("in flight = %v, want 1", got)
	}
	m.FinishJob("worker", time.Second, errors.New("boom"))
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Fatalf("in flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(m.jobs.WithLabelValues("worker", OutcomeFailed)); got != 1 {
		t.Fatalf("failed jobs = %v, want 1", got)
	}
	m.ObserveQueueLag("worker", -time.Second)
	if n := testutil.CollectAndCount(m.queueLag); n != 0 {
		t.Fatalf("negative lag should be ignored, got %d series", n)
	}
}
