package claude

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/gsokit/gsoscope/internal/ailink/driver"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultMaxTokens = 500
)

// Client implements the Claude driver on top of go-anthropic.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	return &Client{
		BaseURL: url,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "anthropic"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportedModels: []string{"claude-3-opus-20240229", "claude-3-5-sonnet-latest", "claude-3-5-haiku-latest"},
	}
}

// Complete sends a messages request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("claude client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, driver.ErrMissingAPIKey
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	httpClient, capture := driver.CaptureRetryAfter(c.HTTPClient)
	client := anthropic.NewClient(c.APIKey,
		anthropic.WithBaseURL(strings.TrimRight(c.BaseURL, "/")),
		anthropic.WithHTTPClient(httpClient))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	ctx, cancel := driver.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(req.Model),
		System:    req.System,
		Messages:  []anthropic.Message{anthropic.NewUserTextMessage(req.Prompt)},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, toProviderError(c.Name(), err, capture.Delay())
	}
	if len(resp.Content) == 0 {
		return nil, driver.Malformed(c.Name(), fmt.Errorf("response has no content"))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Text != nil {
			text.WriteString(*block.Text)
		}
	}

	model := string(resp.Model)
	if model == "" {
		model = req.Model
	}
	return &driver.Response{
		Text:         text.String(),
		Model:        model,
		FinishReason: string(resp.StopReason),
		Usage: &driver.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// statusForErrorType maps Anthropic error types to the HTTP status the API
// documents for them.
var statusForErrorType = map[string]int{
	"invalid_request_error": http.StatusBadRequest,
	"authentication_error":  http.StatusUnauthorized,
	"permission_error":      http.StatusForbidden,
	"not_found_error":       http.StatusNotFound,
	"request_too_large":     http.StatusRequestEntityTooLarge,
	"rate_limit_error":      http.StatusTooManyRequests,
	"api_error":             http.StatusInternalServerError,
	"overloaded_error":      529,
}

func toProviderError(provider string, err error, retryAfter time.Duration) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		status, ok := statusForErrorType[string(apiErr.Type)]
		if !ok {
			status = http.StatusBadGateway
		}
		return &driver.ProviderError{
			Provider:   provider,
			StatusCode: status,
			Message:    strings.TrimSpace(apiErr.Message),
			RetryAfter: retryAfter,
		}
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode > 0 {
		message := ""
		if reqErr.Err != nil {
			message = reqErr.Err.Error()
		}
		return &driver.ProviderError{
			Provider:   provider,
			StatusCode: reqErr.StatusCode,
			Message:    strings.TrimSpace(message),
			RetryAfter: retryAfter,
		}
	}

	return fmt.Errorf("%s request failed: %w", provider, err)
}
