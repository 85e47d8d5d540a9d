package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/infrastructure/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(context.Background(), Options{
		APIKey:       "test-key",
		VisionURL:    server.URL,
		TranslateURL: server.URL,
		LanguageURL:  server.URL,
		ResilienceExecutor: resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts:    2,
			RetryInitialBackoff: time.Millisecond,
			RetryMaxBackoff:     time.Millisecond,
			RetryMultiplier:     2,
			BreakerEnabled:      false,
		}),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestVisionDocumentTextUsesFirstPageConfidence(t *testing.T) {
	var feature string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images:annotate" || r.URL.Query().Get("key") != "test-key" {
			http.NotFound(w, r)
			return
		}
		var payload struct {
			Requests []struct {
				Features []struct {
					Type string `json:"type"`
				} `json:"features"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		feature = payload.Requests[0].Features[0].Type
		_, _ = w.Write([]byte(`{"responses":[{"fullTextAnnotation":{"text":"SAFETY CIRCULAR","pages":[{"confidence":0.87},{"confidence":0.5}]}}]}`))
	})

	res, err := NewVisionOCR(client).RecognizeImage(context.Background(), []byte("png"), domain.OCRMethodDocument)
	if err != nil {
		t.Fatalf("RecognizeImage() error = %v", err)
	}
	if feature != "DOCUMENT_TEXT_DETECTION" {
		t.Fatalf("unexpected feature %q", feature)
	}
	if res.Text != "SAFETY CIRCULAR" || res.Confidence != 0.87 || res.Method != "document" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestVisionTextMethodHasFullConfidence(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses":[{"textAnnotations":[{"description":"Invoice 42"},{"description":"Invoice"}]}]}`))
	})

	res, err := NewVisionOCR(client).RecognizeImage(context.Background(), []byte("png"), domain.OCRMethodText)
	if err != nil {
		t.Fatalf("RecognizeImage() error = %v", err)
	}
	if res.Text != "Invoice 42" || res.Confidence != 1.0 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestVisionAnnotationErrorIsUnprocessable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`))
	})

	_, err := NewVisionOCR(client).RecognizeImage(context.Background(), []byte("png"), domain.OCRMethodDocument)
	if !domain.IsKind(err, domain.ErrUnprocessable) {
		t.Fatalf("expected ErrUnprocessable, got %v", err)
	}
	if !strings.Contains(err.Error(), "Bad image data.") {
		t.Fatalf("expected vendor message in error, got %v", err)
	}
}

func TestVisionPDFBatchesFivePagesAndAveragesConfidence(t *testing.T) {
	var batches [][]int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Requests []struct {
				Pages []int `json:"pages"`
			} `json:"requests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		batches = append(batches, payload.Requests[0].Pages)
		if len(batches) == 1 {
			_, _ = w.Write([]byte(`{"responses":[{"responses":[{"fullTextAnnotation":{"text":"p1","pages":[{"confidence":0.9}]}},{"fullTextAnnotation":{"text":"p2","pages":[{"confidence":0.7}]}}]}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"responses":[{"responses":[{"fullTextAnnotation":{"text":"p6","pages":[{"confidence":0.5}]}}]}]}`))
	})

	res, err := NewVisionOCR(client).RecognizePDF(context.Background(), []byte("%PDF"), 6, domain.OCRMethodDocument)
	if err != nil {
		t.Fatalf("RecognizePDF() error = %v", err)
	}
	if len(batches) != 2 || len(batches[0]) != 5 || batches[1][0] != 6 {
		t.Fatalf("unexpected batches %v", batches)
	}
	if res.Text != "p1\n\np2\n\np6" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.Confidence < 0.699 || res.Confidence > 0.701 {
		t.Fatalf("expected averaged confidence 0.7, got %v", res.Confidence)
	}
}

func TestTranslateRetriesUnavailableAndUnescapes(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "backend busy", http.StatusServiceUnavailable)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload["source"] != "ml" || payload["target"] != "en" {
			t.Fatalf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Metro &amp; station"}]}}`))
	})

	out, err := NewTranslation(client).Translate(context.Background(), "മെട്രോ", "EN", "ml")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if out != "Metro & station" || calls != 2 {
		t.Fatalf("unexpected result %q after %d calls", out, calls)
	}
}

func TestTranslateExhaustedRetriesIsTemporary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusTooManyRequests)
	})

	_, err := NewTranslation(client).Translate(context.Background(), "text", "en", "ml")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestTranslateSendsLongTextAsSegments(t *testing.T) {
	var q []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Q []string `json:"q"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		q = payload.Q
		out := make([]map[string]string, len(q))
		for i := range q {
			out[i] = map[string]string{"translatedText": "T" + strings.Repeat("x", i)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"translations": out}})
	})

	text := strings.Repeat("a", 3000) + "\n\n" + strings.Repeat("b", 3000)
	out, err := NewTranslation(client).Translate(context.Background(), text, "en", "ml")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if len(q) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(q))
	}
	if out != "T\n\nTx" {
		t.Fatalf("unexpected reassembly %q", out)
	}
}

func TestDetectPicksMostConfidentCandidate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/language/translate/v2/detect" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"detections":[[{"language":"en","confidence":0.4},{"language":"ml","confidence":0.92}]]}}`))
	})

	det, err := NewTranslation(client).Detect(context.Background(), "text")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if det.LanguageCode != "ml" || det.LanguageName != "Malayalam" || !det.IsKMRLPrimary {
		t.Fatalf("unexpected detection %+v", det)
	}
}

func TestSupportedLanguagesPassesTarget(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Query().Get("target") != "en" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.String())
		}
		_, _ = w.Write([]byte(`{"data":{"languages":[{"language":"fr","name":"French"},{"language":"ml","name":"Malayalam"}]}}`))
	})

	langs, err := NewTranslation(client).SupportedLanguages(context.Background(), "")
	if err != nil {
		t.Fatalf("SupportedLanguages() error = %v", err)
	}
	if len(langs) != 2 || langs[1].Code != "ml" || !langs[1].IsKMRLPrimary {
		t.Fatalf("unexpected languages %+v", langs)
	}
}

func TestCategorizeReturnsVendorCategories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/documents:classifyText" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"categories":[{"name":"/Law & Government/Legal","confidence":0.81}]}`))
	})

	cats, err := NewNaturalLanguage(client).Categorize(context.Background(), "legal opinion text")
	if err != nil {
		t.Fatalf("Categorize() error = %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "/Law & Government/Legal" {
		t.Fatalf("unexpected categories %+v", cats)
	}
}

func TestCategorizeForbiddenIsUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "API key not valid", http.StatusForbidden)
	})

	_, err := NewNaturalLanguage(client).Categorize(context.Background(), "text")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "API key not valid") {
		t.Fatalf("expected body in error, got %v", err)
	}
}
