package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Platform identifies a generative search platform.
type Platform string

const (
	PlatformChatGPT    Platform = "chatgpt"
	PlatformPerplexity Platform = "perplexity"
	PlatformGoogleAI   Platform = "google_ai"
	PlatformClaude     Platform = "claude"
)

// AllPlatforms is the fixed enumeration order used for aggregated output.
var AllPlatforms = []Platform{
	PlatformChatGPT,
	PlatformPerplexity,
	PlatformGoogleAI,
	PlatformClaude,
}

// ParsePlatform normalizes a platform identifier.
func ParsePlatform(value string) (Platform, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "chatgpt", "openai":
		return PlatformChatGPT, nil
	case "perplexity":
		return PlatformPerplexity, nil
	case "google_ai", "googleai", "gemini":
		return PlatformGoogleAI, nil
	case "claude", "anthropic":
		return PlatformClaude, nil
	default:
		return "", fmt.Errorf("unknown platform %q", value)
	}
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	return p.Index() >= 0
}

// Index returns the enumeration position of p, or -1 if unknown.
func (p Platform) Index() int {
	for i, candidate := range AllPlatforms {
		if candidate == p {
			return i
		}
	}
	return -1
}

// DisplayName returns a human readable label.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformChatGPT:
		return "ChatGPT"
	case PlatformPerplexity:
		return "Perplexity"
	case PlatformGoogleAI:
		return "Google AI"
	case PlatformClaude:
		return "Claude"
	default:
		return string(p)
	}
}

// QueryRequest is one domain/query pair to measure across platforms.
type QueryRequest struct {
	Domain string `json:"domain" yaml:"domain"`
	Query  string `json:"query" yaml:"query"`
	// Timeout overrides the configured search deadline when positive.
	Timeout time.Duration `json:"-" yaml:"-"`
}

// ErrInvalidRequest is wrapped by every QueryRequest validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Validate checks the request before any platform is queried.
func (r QueryRequest) Validate() error {
	domain := strings.TrimSpace(r.Domain)
	if domain == "" {
		return fmt.Errorf("%w: domain is required", ErrInvalidRequest)
	}
	if !strings.Contains(domain, ".") || strings.ContainsAny(domain, " /\t") {
		return fmt.Errorf("%w: invalid domain %q", ErrInvalidRequest, r.Domain)
	}
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}
	if r.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidRequest)
	}
	return nil
}

// Normalized returns a copy with trimmed, lower-cased domain and trimmed query.
func (r QueryRequest) Normalized() QueryRequest {
	r.Domain = strings.ToLower(strings.TrimSpace(r.Domain))
	r.Query = strings.TrimSpace(r.Query)
	return r
}

// PlatformResult reports the outcome of querying one platform.
type PlatformResult struct {
	Platform   Platform   `json:"platform" yaml:"platform"`
	Success    bool       `json:"success" yaml:"success"`
	Score      *float64   `json:"score" yaml:"score"`
	Position   *int       `json:"position" yaml:"position"`
	Snippet    string     `json:"snippet" yaml:"snippet"`
	URL        string     `json:"url" yaml:"url"`
	Timestamp  time.Time  `json:"timestamp" yaml:"timestamp"`
	ErrorKind  *ErrorKind `json:"error_kind" yaml:"error_kind"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	Simulated  bool       `json:"simulated" yaml:"simulated"`
	Attempts   int        `json:"attempts" yaml:"attempts"`
	DurationMS int64      `json:"duration_ms" yaml:"duration_ms"`
	Model      string     `json:"model,omitempty" yaml:"model,omitempty"`
}

// Cited reports whether the domain was found in the platform answer.
func (r PlatformResult) Cited() bool {
	return r.Success && r.Position != nil && *r.Position > 0
}

// ErrorResult builds a failed result for platform from err.
func ErrorResult(platform Platform, err error, at time.Time) PlatformResult {
	kind := KindOf(err)
	message := ""
	if err != nil {
		message = err.Error()
	}
	return PlatformResult{
		Platform:  platform,
		Success:   false,
		Timestamp: at,
		ErrorKind: &kind,
		Error:     message,
	}
}

// AggregateResult collects results for one query across enabled platforms.
type AggregateResult struct {
	QueryID        string           `json:"query_id" yaml:"query_id"`
	Domain         string           `json:"domain" yaml:"domain"`
	Query          string           `json:"query" yaml:"query"`
	Timestamp      time.Time        `json:"timestamp" yaml:"timestamp"`
	Platforms      []PlatformResult `json:"platforms" yaml:"platforms"`
	OverallSuccess bool             `json:"overall_success" yaml:"overall_success"`
}

// Result returns the result for platform, if present.
func (a *AggregateResult) Result(platform Platform) (PlatformResult, bool) {
	if a == nil {
		return PlatformResult{}, false
	}
	for _, result := range a.Platforms {
		if result.Platform == platform {
			return result, true
		}
	}
	return PlatformResult{}, false
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 {
	return &v
}
