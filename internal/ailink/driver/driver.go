package driver

import (
	"context"
)

// Driver defines the interface for generative search providers.
type Driver interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *Request) (*Response, error)
	// Name returns the driver identifier (e.g., "perplexity").
	Name() string
	// Capabilities returns what this driver supports.
	Capabilities() Capabilities
}

// Capabilities describes driver features.
type Capabilities struct {
	// ReturnsCitations is set when the provider returns explicit source URLs.
	ReturnsCitations bool
	SupportedModels  []string
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature *float64
	MaxTokens   int
}

// Response is a provider-agnostic completion response.
type Response struct {
	Text         string
	Citations    []string
	Model        string
	FinishReason string
	Usage        *Usage
}
