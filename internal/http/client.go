// Package http provides the retrying HTTP client used for metrics and
// notifications.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/sharkusmanch/slideshow-runner/pkg/version"
)

// RetryConfig configures retry behavior for the HTTP client.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Client is an HTTP client with retry logic.
type Client struct {
	httpClient *http.Client
	retry      RetryConfig
	userAgent  string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new HTTP client with retry capabilities.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		retry:     DefaultRetryConfig(),
		userAgent: version.Get().UserAgent(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}

	return c
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Send performs a request with retries. Transport errors and retryable
// status codes are retried with exponential backoff; the final response is
// returned even if its status is an error.
func (c *Client) Send(ctx context.Context, method, url, contentType string, body []byte) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		resp, err := c.once(ctx, method, url, contentType, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			c.logger.Warn("HTTP request failed",
				"method", method,
				"url", url,
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		if shouldRetry(resp.StatusCode) && attempt < c.retry.MaxAttempts {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(resp.Body, 256))
			c.logger.Warn("HTTP request returned retryable status",
				"method", method,
				"url", url,
				"status", resp.StatusCode,
				"attempt", attempt,
			)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Send(ctx, http.MethodGet, url, "", nil)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte) (*Response, error) {
	return c.Send(ctx, http.MethodPost, url, contentType, body)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, url, contentType string, body []byte) (*Response, error) {
	return c.Send(ctx, http.MethodPut, url, contentType, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*Response, error) {
	return c.Send(ctx, http.MethodDelete, url, "", nil)
}

// CheckConnectivity sends a single GET without retries and expects a 2xx.
func (c *Client) CheckConnectivity(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.once(ctx, http.MethodGet, url, "", nil)
	if err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("connectivity check returned status %d", resp.StatusCode)
	}
	return nil
}

// once performs a single request and reads the whole body.
func (c *Client) once(ctx context.Context, method, url, contentType string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("HTTP request", "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Headers:    resp.Header,
	}, nil
}

// backoff sleeps before retry number n or returns ctx.Err().
func (c *Client) backoff(ctx context.Context, n int) error {
	delay := c.calculateDelay(n)
	c.logger.Debug("retrying after delay", "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// calculateDelay returns initialDelay * 2^(n-1), capped at MaxDelay.
func (c *Client) calculateDelay(n int) time.Duration {
	delay := float64(c.retry.InitialDelay) * math.Pow(2, float64(n-1))
	if delay > float64(c.retry.MaxDelay) {
		return c.retry.MaxDelay
	}
	return time.Duration(delay)
}

func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
