package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/x402-media-gateway/internal/metrics"
)

const (
	headerContentType   = "Content-Type"
	mimeApplicationJSON = "application/json"

	maxErrorBody = 4 << 10
)

// FacilitatorClient calls a facilitator's /verify and /settle endpoints.
type FacilitatorClient struct {
	URL        string
	HTTPClient *http.Client
}

// NewFacilitatorClient returns a client bounded by timeout.
func NewFacilitatorClient(url string, timeout time.Duration) *FacilitatorClient {
	return &FacilitatorClient{
		URL:        strings.TrimRight(url, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Verify asks the facilitator whether payload satisfies req.
func (c *FacilitatorClient) Verify(ctx context.Context, payload json.RawMessage, req Requirement) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.post(ctx, metrics.FacilitatorCallVerify, payload, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settle asks the facilitator to execute the payment.
func (c *FacilitatorClient) Settle(ctx context.Context, payload json.RawMessage, req Requirement) (*SettleResponse, error) {
	var out SettleResponse
	if err := c.post(ctx, metrics.FacilitatorCallSettle, payload, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *FacilitatorClient) post(ctx context.Context, call string, payload json.RawMessage, req Requirement, out any) error {
	start := time.Now()
	defer func() {
		metrics.FacilitatorDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(facilitatorRequest{
		X402Version:         X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: req,
	})
	if err != nil {
		return &UpstreamError{Call: call, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.URL, call), bytes.NewReader(body))
	if err != nil {
		return &UpstreamError{Call: call, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set(headerContentType, mimeApplicationJSON)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return &UpstreamError{Call: call, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &UpstreamError{Call: call, Status: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Call: call, Err: fmt.Errorf("decode %s response: %w", call, err)}
	}
	return nil
}
