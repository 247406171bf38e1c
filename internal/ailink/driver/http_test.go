package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	h := http.Header{}
	require.Equal(t, time.Duration(0), RetryAfter(h, now))

	h.Set("Retry-After", "7")
	require.Equal(t, 7*time.Second, RetryAfter(h, now))

	h.Set("Retry-After", "1.5")
	require.Equal(t, 1500*time.Millisecond, RetryAfter(h, now))

	h.Set("Retry-After", now.Add(90*time.Second).Format(http.TimeFormat))
	require.Equal(t, 90*time.Second, RetryAfter(h, now))

	h.Set("Retry-After", "soon")
	require.Equal(t, time.Duration(0), RetryAfter(h, now))
}

func TestPostJSONProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("X-Key"))
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(" slow down "))
	}))
	defer server.Close()

	var out map[string]any
	err := PostJSON(context.Background(), server.Client(), "test", server.URL, map[string]string{"X-Key": "secret"}, map[string]string{"a": "b"}, &out)
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, http.StatusTooManyRequests, perr.StatusCode)
	require.Equal(t, 3*time.Second, perr.RetryAfter)
	require.Equal(t, "slow down", perr.Message)
}

func TestPostJSONMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	var out map[string]any
	err := PostJSON(context.Background(), server.Client(), "test", server.URL, nil, struct{}{}, &out)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCaptureRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "4")
		if r.URL.Path == "/limited" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	_, empty := CaptureRetryAfter(nil)
	require.Equal(t, time.Duration(0), empty.Delay())

	client, capture := CaptureRetryAfter(server.Client())
	require.NotSame(t, server.Client(), client)

	resp, err := client.Get(server.URL + "/limited")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, 4*time.Second, capture.Delay())

	client, capture = CaptureRetryAfter(server.Client())
	resp, err = client.Get(server.URL + "/bad")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, time.Duration(0), capture.Delay())
}
