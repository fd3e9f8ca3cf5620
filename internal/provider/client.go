// Package provider talks to the upstream media generation API: it submits a
// generation request for a model, pulls the result URL out of the response,
// and downloads the produced file.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	mimeApplicationJSON = "application/json"

	// error bodies are truncated to this many bytes
	maxErrorBody = 4 << 10

	defaultMaxDownload = 256 << 20
)

// Client calls a fal.run style API: POST {BaseURL}/{model} with
// "Authorization: Key <APIKey>" and a JSON body.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client

	// MaxDownloadBytes caps Download; 0 means the package default.
	MaxDownloadBytes int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxDownloadBytes caps the size of a downloaded result.
func WithMaxDownloadBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.MaxDownloadBytes = n
		}
	}
}

// NewClient returns a Client with its own HTTP client bounded by timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:          strings.TrimRight(baseURL, "/"),
		APIKey:           apiKey,
		HTTPClient:       &http.Client{Timeout: timeout},
		MaxDownloadBytes: defaultMaxDownload,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestBody merges the prompt into a copy of the route's parameter
// template. The template is never modified.
func RequestBody(params map[string]any, prompt string) map[string]any {
	body := make(map[string]any, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	body["prompt"] = prompt
	return body
}

// Generate submits body to model and returns the decoded JSON response.
func (c *Client) Generate(ctx context.Context, model string, body map[string]any) (any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ProviderError{Model: model, Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/%s", c.BaseURL, strings.TrimLeft(model, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ProviderError{Model: model, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set(headerContentType, mimeApplicationJSON)
	req.Header.Set(headerAuthorization, "Key "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Model: model, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ProviderError{Model: model, Status: resp.StatusCode, Body: string(b)}
	}

	var tree any
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, &ProviderError{Model: model, Err: fmt.Errorf("decode response: %w", err)}
	}
	return tree, nil
}

// ResultURL extracts the artifact URL from a provider response. A missing
// or non-string value is a *ProviderError carrying the response.
func ResultURL(model string, tree any, dotPath string) (string, error) {
	u, err := ExtractString(tree, dotPath)
	if err != nil {
		raw, _ := json.Marshal(tree)
		body := string(raw)
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return "", &ProviderError{Model: model, Body: body, Err: err}
	}
	return u, nil
}

// Download fetches url and returns its bytes. A body larger than
// MaxDownloadBytes is a *DownloadError.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DownloadError{URL: url, Status: resp.StatusCode}
	}
	limit := c.MaxDownloadBytes
	if limit <= 0 {
		limit = defaultMaxDownload
	}
	if resp.ContentLength > limit {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("%w: %d > %d bytes", ErrDownloadTooLarge, resp.ContentLength, limit)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(data)) > limit {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("%w: over %d bytes", ErrDownloadTooLarge, limit)}
	}
	return data, nil
}
