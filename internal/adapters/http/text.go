package httpadapter

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kmrl/documind/internal/core/domain"
)

const (
	maxJSONBodyBytes = 2 << 20
	textPreviewRunes = 200
)

type textRequest struct {
	Text           string  `json:"text"`
	TargetLanguage string  `json:"target_language"`
	SourceLanguage string  `json:"source_language"`
	MinConfidence  float64 `json:"min_confidence"`
}

// readTextRequest decodes a JSON body, falling back to query parameters when the body is empty.
func (rt *Router) readTextRequest(w http.ResponseWriter, r *http.Request) (textRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var req textRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		rt.rejectJSONBody(w, r, "read text request", err, "invalid json")
		return req, false
	}
	q := r.URL.Query()
	if req.Text == "" {
		req.Text = q.Get("text")
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = q.Get("target_language")
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = q.Get("source_language")
	}
	return req, true
}

func (rt *Router) detectLanguage(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.readTextRequest(w, r)
	if !ok {
		return
	}
	det, err := rt.languages.DetectLanguage(r.Context(), req.Text)
	if err != nil {
		rt.writeError(w, r, "detect language", err)
		return
	}
	writeData(w, http.StatusOK, det)
}

func (rt *Router) translate(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.readTextRequest(w, r)
	if !ok {
		return
	}
	target := strings.TrimSpace(req.TargetLanguage)
	if target == "" {
		target = rt.defaultTarget
	}
	res, err := rt.languages.Translate(r.Context(), req.Text, target, req.SourceLanguage)
	if err != nil {
		rt.writeError(w, r, "translate", err)
		return
	}
	if res.Error != "" {
		writeEnvelope(w, http.StatusBadGateway, envelope{Error: "translation failed: " + res.Error, Data: res})
		return
	}
	writeData(w, http.StatusOK, res)
}

func (rt *Router) supportedLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := rt.languages.SupportedLanguages(r.Context())
	if err != nil {
		rt.writeError(w, r, "supported languages", err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"languages":    langs,
		"kmrl_primary": []string{domain.LanguageName("en"), domain.LanguageName("ml")},
		"total_count":  len(langs),
	})
}

func (rt *Router) classifyText(w http.ResponseWriter, r *http.Request) {
	req, ok := rt.readTextRequest(w, r)
	if !ok {
		return
	}
	start := time.Now()
	result, err := rt.classifier.ClassifyText(r.Context(), req.Text, req.MinConfidence)
	if err != nil {
		rt.writeError(w, r, "classify text", err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"processing_time_seconds": seconds(time.Since(start)),
		"classification":          result,
		"text_preview":            preview(req.Text),
	})
}

// classifyTextBare answers with the classification itself, outside the envelope.
func (rt *Router) classifyTextBare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.rejectJSONBody(w, r, "classify text", err, "request body is required")
		return
	}
	result, err := rt.classifier.ClassifyText(r.Context(), req.Text, req.MinConfidence)
	if err != nil {
		rt.writeError(w, r, "classify text", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= textPreviewRunes {
		return text
	}
	return string([]rune(text)[:textPreviewRunes]) + "..."
}
