package perplexity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gsokit/gsoscope/internal/ailink/driver"
)

const defaultBaseURL = "https://api.perplexity.ai"

// Client implements the Perplexity online-model driver via direct HTTP.
//
// Perplexity speaks an OpenAI-compatible chat shape, plus a top-level
// citations array listing the sources the answer was built from.
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
	return "perplexity"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		ReturnsCitations: true,
		SupportedModels:  []string{"pplx-70b-online", "sonar", "sonar-pro"},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Temperature     *float64      `json:"temperature,omitempty"`
	MaxTokens       int           `json:"max_tokens,omitempty"`
	ReturnCitations bool          `json:"return_citations"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Citations []citation    `json:"citations"`
	Usage     *driver.Usage `json:"usage"`
}

// citation accepts both plain URL strings and {"url": ...} objects.
type citation string

func (c *citation) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*c = citation(plain)
		return nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("citation: %w", err)
	}
	*c = citation(obj.URL)
	return nil
}

// Complete sends a chat completion request with citations enabled.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("perplexity client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, driver.ErrMissingAPIKey
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	payload := chatRequest{
		Model:           req.Model,
		Temperature:     req.Temperature,
		MaxTokens:       req.MaxTokens,
		ReturnCitations: true,
	}
	if strings.TrimSpace(req.System) != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.Prompt})

	ctx, cancel := driver.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var parsed chatResponse
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.APIKey}
	if err := driver.PostJSON(ctx, c.HTTPClient, c.Name(), url, headers, payload, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Choices) == 0 {
		return nil, driver.Malformed(c.Name(), fmt.Errorf("response has no choices"))
	}

	citations := make([]string, 0, len(parsed.Citations))
	for _, item := range parsed.Citations {
		if value := strings.TrimSpace(string(item)); value != "" {
			citations = append(citations, value)
		}
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return &driver.Response{
		Text:         parsed.Choices[0].Message.Content,
		Citations:    citations,
		Model:        model,
		FinishReason: parsed.Choices[0].FinishReason,
		Usage:        parsed.Usage,
	}, nil
}
