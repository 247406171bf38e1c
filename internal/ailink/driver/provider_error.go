package driver

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedResponse marks a 2xx response whose body could not be decoded.
var ErrMalformedResponse = errors.New("malformed provider response")

// ErrMissingAPIKey is returned before any network call when no key is set.
var ErrMissingAPIKey = errors.New("api key is required")

// ProviderError is returned when a provider responds with a non-2xx status.
//
// Drivers should populate RawResponse with the provider response body bytes.
// RawResponse must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RetryAfter  time.Duration
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// Malformed wraps a decode failure.
func Malformed(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, ErrMalformedResponse, err)
}
