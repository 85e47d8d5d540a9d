package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kmrl/documind/internal/core/domain"
)

type fallbackFake struct {
	calls int
}

func (f *fallbackFake) Classify(_ context.Context, _ string) (domain.ClassificationResult, error) {
	f.calls++
	return domain.ClassificationResult{Category: "Operations", Confidence: 0.3, Method: domain.MethodKeywordFallback}, nil
}

var testTaxonomy = domain.Taxonomy{Categories: []domain.TaxonomyCategory{
	{Name: "Safety"}, {Name: "Finance"}, {Name: "Operations"},
}}

func newGenerateServer(t *testing.T, status int, response string, prompt *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if prompt != nil {
			*prompt, _ = payload["prompt"].(string)
		}
		if status != http.StatusOK {
			http.Error(w, "model unavailable", status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
}

func TestClassifierUsesModelCategory(t *testing.T) {
	var prompt string
	server := newGenerateServer(t, http.StatusOK, "Sure: {\"category\":\"safety\",\"confidence\":1.4,\"reason\":\"fire drill\"}", &prompt)
	defer server.Close()

	fallback := &fallbackFake{}
	c := NewClassifier(New(Options{BaseURL: server.URL, Model: "test"}), testTaxonomy, fallback, nil)
	res, err := c.Classify(context.Background(), "Fire drill at Aluva station on Monday")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if res.Category != "Safety" || res.Confidence != 1 || res.Method != domain.MethodLLM {
		t.Fatalf("unexpected result %+v", res)
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback called %d times", fallback.calls)
	}
	if !strings.Contains(prompt, "Safety, Finance, Operations") || !strings.Contains(prompt, "Aluva") {
		t.Fatalf("unexpected prompt: %s", prompt)
	}
}

func TestClassifierFallsBackOnUnknownCategory(t *testing.T) {
	server := newGenerateServer(t, http.StatusOK, `{"category":"Weather","confidence":0.9}`, nil)
	defer server.Close()

	fallback := &fallbackFake{}
	c := NewClassifier(New(Options{BaseURL: server.URL}), testTaxonomy, fallback, nil)
	res, err := c.Classify(context.Background(), "monsoon forecast")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if fallback.calls != 1 || res.Method != domain.MethodKeywordFallback {
		t.Fatalf("expected fallback result, got %+v", res)
	}
}

func TestClassifierFallsBackOnHTTPError(t *testing.T) {
	server := newGenerateServer(t, http.StatusBadRequest, "", nil)
	defer server.Close()

	fallback := &fallbackFake{}
	c := NewClassifier(New(Options{BaseURL: server.URL}), testTaxonomy, fallback, nil)
	if _, err := c.Classify(context.Background(), "budget approval"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback calls = %d", fallback.calls)
	}
}

func TestGenerateIncludesHTTPBodyInError(t *testing.T) {
	server := newGenerateServer(t, http.StatusBadGateway, "", nil)
	defer server.Close()

	_, err := New(Options{BaseURL: server.URL}).generateJSON(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error with body, got %v", err)
	}
}
