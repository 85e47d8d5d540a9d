// Package ollama classifies documents with a local LLM served by Ollama.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
	"github.com/kmrl/documind/internal/core/ports"
	"github.com/kmrl/documind/internal/infrastructure/resilience"
)

type Options struct {
	BaseURL            string
	Model              string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "llama3.1"
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.ResilienceExecutor,
	}
}

// Classifier asks the model to pick one taxonomy category. Failed or off-taxonomy answers go to fallback.
type Classifier struct {
	client   *Client
	taxonomy domain.Taxonomy
	fallback ports.TextClassifier
	logger   *slog.Logger
}

func NewClassifier(client *Client, taxonomy domain.Taxonomy, fallback ports.TextClassifier, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, taxonomy: taxonomy, fallback: fallback, logger: logger}
}

type llmAnswer struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (c *Classifier) Classify(ctx context.Context, text string) (domain.ClassificationResult, error) {
	if strings.TrimSpace(text) == "" {
		return c.fallback.Classify(ctx, text)
	}
	start := time.Now()

	answer, err := c.ask(ctx, text)
	if err == nil {
		if category, ok := c.canonical(answer.Category); ok {
			confidence := clamp(answer.Confidence)
			return domain.ClassificationResult{
				Category:   category,
				Confidence: confidence,
				AllCategories: []domain.CategoryScore{{
					Category:   category,
					Confidence: confidence,
				}},
				GoogleCategories:      []domain.VendorCategory{},
				Method:                domain.MethodLLM,
				ProcessingTimeSeconds: time.Since(start).Seconds(),
			}, nil
		}
		err = fmt.Errorf("model answered with unknown category %q", answer.Category)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.ClassificationResult{}, ctxErr
	}
	c.logger.Warn("llm_classification_failed", "model", c.client.model, "error", err)
	return c.fallback.Classify(ctx, text)
}

func (c *Classifier) ask(ctx context.Context, text string) (llmAnswer, error) {
	raw, err := c.client.generateJSON(ctx, buildClassificationPrompt(c.taxonomy.CategoryNames(), text))
	if err != nil {
		return llmAnswer{}, err
	}
	var answer llmAnswer
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &answer); err != nil {
		return llmAnswer{}, fmt.Errorf("parse classification json: %w", err)
	}
	return answer, nil
}

// canonical matches the model's answer case-insensitively against the taxonomy.
func (c *Classifier) canonical(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, known := range c.taxonomy.CategoryNames() {
		if strings.EqualFold(known, name) {
			return known, true
		}
	}
	return "", false
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	err := c.postJSON(ctx, "/api/generate", map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0,
		},
	}, &response, "generate")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
