package httpadapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kmrl/documind/internal/config"
)

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	tr := newTestRouter(config.Config{APIRateLimitRPS: 0.5, APIRateLimitBurst: 1}, nil)

	codes := make([]int, 0, 2)
	var last *httptest.ResponseRecorder
	for range 2 {
		last = httptest.NewRecorder()
		tr.handler.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
		codes = append(codes, last.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v, want [200 429]", codes)
	}
	if got := last.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q, want 2 at half a request per second", got)
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)
	rejected := 0

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond, func() { rejected++ })

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/api/languages", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}
	if rejected != 1 {
		t.Fatalf("expected one rejection callback, got %d", rejected)
	}

	var resp map[string]any
	if err := json.NewDecoder(bytes.NewReader(res2.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if resp["error"] == "" || resp["success"] != false {
		t.Fatalf("expected overload error envelope, got %v", resp)
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}

func TestRequestIDMiddlewareKeepsSafeCallerIDs(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "kmrl-upload-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if seen != "kmrl-upload-42" || res.Header().Get(requestIDHeader) != "kmrl-upload-42" {
		t.Fatalf("caller id not propagated: ctx=%q header=%q", seen, res.Header().Get(requestIDHeader))
	}

	for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("a", maxRequestIDLen+1)} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, bad)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if seen == bad || seen == "" {
			t.Fatalf("unsafe id %q should be replaced, got %q", bad, seen)
		}
	}
}

func TestLevelForStatus(t *testing.T) {
	cases := map[int]slog.Level{200: slog.LevelInfo, 404: slog.LevelWarn, 502: slog.LevelError}
	for status, want := range cases {
		if got := levelForStatus(status); got != want {
			t.Fatalf("levelForStatus(%d) = %v, want %v", status, got, want)
		}
	}
}
