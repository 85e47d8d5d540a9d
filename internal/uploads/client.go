package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kmrl/documind/internal/core/domain"
)

// APIError is a non-2xx answer from the DocuMind API.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("documind %s: status %d", e.Operation, e.StatusCode)
	}
	return fmt.Sprintf("documind %s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client calls the DocuMind REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) ProcessDocument(ctx context.Context, filename string, data []byte, opts domain.ProcessOptions) (*domain.ProcessingResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart file: %w", err)
	}
	fields := map[string]string{
		"ocr_method":             string(opts.OCRMethod),
		"target_language":        opts.TargetLanguage,
		"include_translation":    strconv.FormatBool(opts.IncludeTranslation),
		"include_classification": strconv.FormatBool(opts.IncludeClassification),
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write multipart field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents/process", &body)
	if err != nil {
		return nil, fmt.Errorf("create process request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result domain.ProcessingResult
	if err := c.doEnvelope(req, "process", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ClassifyProcessing(ctx context.Context, processingID string, in domain.ClassifyRequest) (*domain.ClassificationResult, error) {
	var out struct {
		Classification *domain.ClassificationResult `json:"classification"`
		TextSource     string                       `json:"text_source"`
	}
	path := "/api/documents/classify/" + url.PathEscape(processingID)
	if err := c.postJSON(ctx, path, in, "classify", &out, true); err != nil {
		return nil, err
	}
	if out.Classification != nil && out.Classification.TextSource == "" {
		out.Classification.TextSource = out.TextSource
	}
	return out.Classification, nil
}

// ClassifyText uses the stateless endpoint, which answers with a bare classification.
func (c *Client) ClassifyText(ctx context.Context, text string, minConfidence float64) (*domain.ClassificationResult, error) {
	payload := map[string]any{"text": text, "min_confidence": minConfidence}
	var out domain.ClassificationResult
	if err := c.postJSON(ctx, "/classify/text", payload, "classify text", &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Languages(ctx context.Context) ([]domain.Language, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/languages", nil)
	if err != nil {
		return nil, fmt.Errorf("create languages request: %w", err)
	}
	var out struct {
		Languages []domain.Language `json:"languages"`
	}
	if err := c.doEnvelope(req, "languages", &out); err != nil {
		return nil, err
	}
	return out.Languages, nil
}

func (c *Client) GetProcessing(ctx context.Context, processingID string) (*domain.ProcessingRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/documents/"+url.PathEscape(processingID), nil)
	if err != nil {
		return nil, fmt.Errorf("create get request: %w", err)
	}
	var rec domain.ProcessingRecord
	if err := c.doEnvelope(req, "get processing", &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, operation string, out any, enveloped bool) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if enveloped {
		return c.doEnvelope(req, operation, out)
	}
	return c.do(req, operation, out)
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("documind %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return readAPIError(operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) doEnvelope(req *http.Request, operation string, out any) error {
	var env envelope
	if err := c.do(req, operation, &env); err != nil {
		return err
	}
	if !env.Success {
		return &APIError{Operation: operation, StatusCode: http.StatusOK, Message: env.Error}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.New("documind " + operation + ": response has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", operation, err)
	}
	return nil
}

func readAPIError(operation string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Operation: operation, StatusCode: resp.StatusCode}
	var env envelope
	if json.Unmarshal(raw, &env) == nil && env.Error != "" {
		apiErr.Message = env.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
