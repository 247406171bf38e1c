package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 2048

// PostJSON sends payload as JSON to url and decodes a 2xx body into out.
// Non-2xx responses become *ProviderError carrying any Retry-After delay.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := strings.TrimSpace(string(respBody))
		if len(message) > maxErrorBody {
			message = message[:maxErrorBody]
		}
		return &ProviderError{
			Provider:    provider,
			StatusCode:  resp.StatusCode,
			Message:     message,
			RetryAfter:  RetryAfter(resp.Header, time.Now()),
			RawResponse: respBody,
		}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return Malformed(provider, err)
	}
	return nil
}

// RetryAfter parses a Retry-After header given as seconds or an HTTP date.
func RetryAfter(header http.Header, now time.Time) time.Duration {
	if header == nil {
		return 0
	}
	retry := strings.TrimSpace(header.Get("Retry-After"))
	if retry == "" {
		return 0
	}

	if seconds, err := strconv.ParseFloat(retry, 64); err == nil && seconds > 0 {
		return time.Duration(seconds * float64(time.Second))
	}
	if parsed, err := http.ParseTime(retry); err == nil {
		if wait := parsed.Sub(now); wait > 0 {
			return wait
		}
	}
	return 0
}

// RetryAfterCapture records the Retry-After delay of the most recent 429 or
// 5xx response seen by a wrapped client. SDK drivers use it because their
// error types drop response headers.
type RetryAfterCapture struct {
	base http.RoundTripper
	now  func() time.Time

	mu    sync.Mutex
	delay time.Duration
}

// CaptureRetryAfter returns a copy of client whose transport records
// Retry-After headers. A nil client starts from http.DefaultClient.
func CaptureRetryAfter(client *http.Client) (*http.Client, *RetryAfterCapture) {
	if client == nil {
		client = http.DefaultClient
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	capture := &RetryAfterCapture{base: base, now: time.Now}
	wrapped := *client
	wrapped.Transport = capture
	return &wrapped, capture
}

// RoundTrip implements http.RoundTripper.
func (c *RetryAfterCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := c.base.RoundTrip(req)
	if err != nil || resp == nil {
		return resp, err
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		c.mu.Lock()
		c.delay = RetryAfter(resp.Header, c.now())
		c.mu.Unlock()
	}
	return resp, nil
}

// Delay returns the last recorded delay, zero when none was sent.
func (c *RetryAfterCapture) Delay() time.Duration {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay
}

// WithTimeout applies a per-call timeout when positive.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
