package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryRequestValidate(t *testing.T) {
	require.NoError(t, QueryRequest{Domain: "seo-ia.lu", Query: "agence SEO Luxembourg"}.Validate())
	require.ErrorIs(t, QueryRequest{Domain: "", Query: "q"}.Validate(), ErrInvalidRequest)
	require.Error(t, QueryRequest{Domain: "localhost", Query: "q"}.Validate())
	require.Error(t, QueryRequest{Domain: "a.b", Query: "  "}.Validate())
	require.Error(t, QueryRequest{Domain: "a.b", Query: "q", Timeout: -time.Second}.Validate())
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("Google-AI")
	require.NoError(t, err)
	require.Equal(t, PlatformGoogleAI, p)

	p, err = ParsePlatform("anthropic")
	require.NoError(t, err)
	require.Equal(t, PlatformClaude, p)

	_, err = ParsePlatform("bing")
	require.Error(t, err)
	require.Equal(t, 3, PlatformClaude.Index())
	require.False(t, Platform("bing").Valid())
}

func TestPlatformResultJSONNulls(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	result := ErrorResult(PlatformClaude, NewPlatformError(PlatformClaude, ErrorAuthentication, "no key"), at)

	raw, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded["score"])
	require.Nil(t, decoded["position"])
	require.Equal(t, "authentication_error", decoded["error_kind"])
	require.Equal(t, false, decoded["success"])
	require.False(t, result.Cited())
}

func TestScoreForPosition(t *testing.T) {
	require.Equal(t, 10.0, ScoreForPosition(PlatformChatGPT, 1))
	require.Equal(t, 7.0, ScoreForPosition(PlatformChatGPT, 3))
	require.Equal(t, 8.0, ScoreForPosition(PlatformPerplexity, 2))
	require.Equal(t, 2.0, ScoreForPosition(PlatformGoogleAI, 5))
	require.Equal(t, 0.0, ScoreForPosition(PlatformClaude, 0))
	require.Equal(t, 0.0, ScoreForPosition(PlatformClaude, 7))
}
