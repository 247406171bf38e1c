package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gsokit/gsoscope/internal/ailink/driver"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the Google AI (Gemini) generateContent driver.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient returns a client with defaults applied.
func NewClient(baseURL, apiKey string) *Client {
	u := strings.TrimSpace(baseURL)
	if u == "" {
		u = defaultBaseURL
	}
	return &Client{
		BaseURL: u,
		APIKey:  strings.TrimSpace(apiKey),
	}
}

// Name returns the driver identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Capabilities describes supported features.
func (c *Client) Capabilities() driver.Capabilities {
	return driver.Capabilities{
		SupportedModels: []string{"gemini-pro", "gemini-1.5-pro", "gemini-1.5-flash"},
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content          content `json:"content"`
		FinishReason     string  `json:"finishReason"`
		CitationMetadata *struct {
			CitationSources []struct {
				URI string `json:"uri"`
			} `json:"citationSources"`
		} `json:"citationMetadata"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

// Complete sends a generateContent request.
func (c *Client) Complete(ctx context.Context, req *driver.Request) (*driver.Response, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, driver.ErrMissingAPIKey
	}
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
	}
	if strings.TrimSpace(req.System) != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		payload.GenerationConfig = &generationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens}
	}

	ctx, cancel := driver.WithTimeout(ctx, c.Timeout)
	defer cancel()

	// The key travels in a header so transport errors, which echo the URL,
	// never contain it.
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(model))
	headers := map[string]string{"x-goog-api-key": c.APIKey}

	var parsed generateResponse
	if err := driver.PostJSON(ctx, c.HTTPClient, c.Name(), endpoint, headers, payload, &parsed); err != nil {
		return nil, err
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, driver.Malformed(c.Name(), fmt.Errorf("response has no candidates"))
	}

	first := parsed.Candidates[0]
	var text strings.Builder
	for _, p := range first.Content.Parts {
		text.WriteString(p.Text)
	}

	var citations []string
	if first.CitationMetadata != nil {
		for _, src := range first.CitationMetadata.CitationSources {
			if uri := strings.TrimSpace(src.URI); uri != "" {
				citations = append(citations, uri)
			}
		}
	}

	resp := &driver.Response{
		Text:         text.String(),
		Citations:    citations,
		Model:        model,
		FinishReason: first.FinishReason,
	}
	if parsed.ModelVersion != "" {
		resp.Model = parsed.ModelVersion
	}
	if parsed.UsageMetadata != nil {
		resp.Usage = &driver.Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		}
	}
	return resp, nil
}
