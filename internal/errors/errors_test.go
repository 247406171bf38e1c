package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
)

func TestFromSearchErrorCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"invalid request", core.QueryRequest{Domain: "", Query: "q"}.Validate(), CodeInvalidInput, http.StatusBadRequest},
		{"invalid config", &config.ValidationError{Problems: []string{"search.timeout must be positive"}}, CodeConfigInvalid, http.StatusInternalServerError},
		{"deadline", fmt.Errorf("search: %w", context.DeadlineExceeded), CodeTimeout, http.StatusGatewayTimeout},
		{"cancelled", context.Canceled, CodeServiceUnavailable, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := FromSearchError(context.Background(), tc.err)
			require.NotNil(t, env)
			assert.Equal(t, tc.code, env.Code)
			assert.Equal(t, tc.status, HTTPStatusFromCode(env.Code))
			assert.NotEmpty(t, env.CorrelationID)
			assert.Equal(t, tc.err.Error(), env.Context["wrapped_error"])
		})
	}
}

func TestEnsureEnvelopeKeepsExisting(t *testing.T) {
	original := NewNotFoundError("missing")
	assert.Same(t, original, EnsureEnvelope(original))

	wrapped := EnsureEnvelope(fmt.Errorf("plain"))
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "plain", wrapped.Context["wrapped_error"])

	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}

func TestRespondWithErrorWritesJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/search", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, NewInvalidInputError("domain is required"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeInvalidInput, body.Error.Code)
	assert.Equal(t, "domain is required", body.Error.Message)
	assert.NotEmpty(t, body.Error.RequestID)
}
