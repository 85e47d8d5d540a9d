package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kmrl/documind/internal/infrastructure/resilience"
)

func (c *Client) postJSON(ctx context.Context, baseURL, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint(baseURL, path, nil), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req, out, operation)
	}
	return c.execute(ctx, operation, call)
}

func (c *Client) getJSON(ctx context.Context, baseURL, path string, query url.Values, out any, operation string) error {
	call := func(callCtx context.Context) error {
		req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.endpoint(baseURL, path, query), nil)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		return c.do(req, out, operation)
	}
	return c.execute(ctx, operation, call)
}

func (c *Client) do(req *http.Request, out any, operation string) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("google %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("google", operation, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "google."+operation, call, resilience.ClassifyHTTPError)
	} else {
		err = call(ctx)
	}
	return resilience.WrapHTTPError("google "+operation, err)
}

func (c *Client) endpoint(baseURL, path string, query url.Values) string {
	if c.apiKey != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("key", c.apiKey)
	}
	if len(query) == 0 {
		return baseURL + path
	}
	return baseURL + path + "?" + query.Encode()
}
