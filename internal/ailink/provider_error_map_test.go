package ailink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gsokit/gsoscope/internal/ailink/driver"
	"github.com/gsokit/gsoscope/internal/core"
)

func TestMapProviderErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantKind   core.ErrorKind
	}{
		{"auth", 401, core.ErrorAuthentication},
		{"forbidden", 403, core.ErrorAuthentication},
		{"rate", 429, core.ErrorTransient},
		{"request timeout", 408, core.ErrorTransient},
		{"bad", 400, core.ErrorPermanent},
		{"not found", 404, core.ErrorPermanent},
		{"unavail", 503, core.ErrorTransient},
		{"overloaded", 529, core.ErrorTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &driver.ProviderError{Provider: "openai", StatusCode: tc.statusCode, Message: "boom"}
			mapped := mapProviderError(core.PlatformChatGPT, err)
			require.NotNil(t, mapped)
			require.Equal(t, tc.wantKind, mapped.Kind)
			require.Equal(t, tc.statusCode, mapped.StatusCode)
			require.Equal(t, core.PlatformChatGPT, mapped.Platform)
		})
	}
}

func TestMapProviderErrorKeepsRetryAfterOn429(t *testing.T) {
	err := &driver.ProviderError{Provider: "perplexity", StatusCode: 429, RetryAfter: 7 * time.Second}
	mapped := mapProviderError(core.PlatformPerplexity, err)
	require.Equal(t, 7*time.Second, mapped.RetryAfter)
	require.Equal(t, 7*time.Second, core.RetryAfterOf(mapped))
	require.Equal(t, "Too Many Requests", mapped.Message)
}

func TestMapProviderErrorSentinels(t *testing.T) {
	wrappedDeadline := fmt.Errorf("call: %w", context.DeadlineExceeded)
	cases := []struct {
		name string
		err  error
		want core.ErrorKind
	}{
		{"deadline", wrappedDeadline, core.ErrorTimeout},
		{"missing key", driver.ErrMissingAPIKey, core.ErrorAuthentication},
		{"malformed", driver.Malformed("gemini", errors.New("eof")), core.ErrorPermanent},
		{"network", &url.Error{Op: "Post", URL: "https://api.example", Err: errors.New("connection refused")}, core.ErrorTransient},
		{"unknown", errors.New("weird"), core.ErrorPermanent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := mapProviderError(core.PlatformGoogleAI, tc.err)
			require.Equal(t, tc.want, mapped.Kind)
			require.ErrorIs(t, mapped, tc.err)
		})
	}
}

func TestMapProviderErrorNil(t *testing.T) {
	require.Nil(t, mapProviderError(core.PlatformClaude, nil))
}
