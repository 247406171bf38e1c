package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/gsokit/gsoscope/internal/ailink/driver"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements the ChatGPT driver on top of go-openai.
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
	return "openai"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportedModels: []string{"gpt-4-turbo-preview", "gpt-4o", "gpt-4o-mini"},
	}
}

// Complete sends a chat completion request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("openai client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, driver.ErrMissingAPIKey
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	config := goopenai.DefaultConfig(c.APIKey)
	config.BaseURL = strings.TrimRight(c.BaseURL, "/")
	httpClient, capture := driver.CaptureRetryAfter(c.HTTPClient)
	config.HTTPClient = httpClient
	client := goopenai.NewClientWithConfig(config)

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := goopenai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	ctx, cancel := driver.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, toProviderError(c.Name(), err, capture.Delay())
	}
	if len(resp.Choices) == 0 {
		return nil, driver.Malformed(c.Name(), fmt.Errorf("response has no choices"))
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &driver.Response{
		Text:         resp.Choices[0].Message.Content,
		Model:        model,
		FinishReason: string(resp.Choices[0].FinishReason),
		Usage: &driver.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// toProviderError normalizes go-openai errors so status-based
// classification works the same as for the raw HTTP drivers.
func toProviderError(provider string, err error, retryAfter time.Duration) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &driver.ProviderError{
			Provider:   provider,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    strings.TrimSpace(apiErr.Message),
			RetryAfter: retryAfter,
		}
	}

	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		message := ""
		if reqErr.Err != nil {
			message = reqErr.Err.Error()
		}
		return &driver.ProviderError{
			Provider:    provider,
			StatusCode:  reqErr.HTTPStatusCode,
			Message:     strings.TrimSpace(message),
			RetryAfter:  retryAfter,
			RawResponse: reqErr.Body,
		}
	}

	return fmt.Errorf("%s request failed: %w", provider, err)
}
