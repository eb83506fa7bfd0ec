package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	defaultRetryDelay  = 100 * time.Millisecond

	// maxResponseBytes bounds what a misbehaving peer can make us buffer.
	maxResponseBytes = 1 << 20
)

// HttpClient talks JSON to a sibling service. Idempotent reads are retried
// on transport failures and gateway errors.
type HttpClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Retries    int
	RetryDelay time.Duration

	// Headers, when set, adds per-call headers such as the caller's request id.
	Headers func(ctx context.Context) map[string]string
}

func NewHttpClient(baseURL string) *HttpClient {
	return &HttpClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
		Retries:    2,
		RetryDelay: defaultRetryDelay,
	}
}

// Response is a fully read reply. The underlying body is already closed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

// ErrorMessage pulls the human-readable part out of an error envelope.
func (r *Response) ErrorMessage() string {
	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := r.DecodeJSON(&envelope); err != nil {
		return http.StatusText(r.StatusCode)
	}
	switch {
	case envelope.Message != "":
		return envelope.Message
	case envelope.Error != "":
		return envelope.Error
	case envelope.Code != "":
		return envelope.Code
	}
	return http.StatusText(r.StatusCode)
}

func (c *HttpClient) GET(ctx context.Context, path string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.RetryDelay*time.Duration(attempt)); err != nil {
				return nil, errors.Join(lastErr, err)
			}
		}

		resp, err := c.do(ctx, http.MethodGet, path)
		switch {
		case err != nil:
			lastErr = err
		case retryableStatus(resp.StatusCode):
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, resp.ErrorMessage())
			if attempt == c.Retries {
				return resp, nil
			}
		default:
			return resp, nil
		}
	}
	return nil, lastErr
}

func (c *HttpClient) do(ctx context.Context, method, path string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Headers != nil {
		for key, value := range c.Headers(ctx) {
			if value != "" {
				req.Header.Set(key, value)
			}
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
