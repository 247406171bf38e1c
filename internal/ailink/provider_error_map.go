package ailink

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/gsokit/gsoscope/internal/ailink/driver"
	"github.com/gsokit/gsoscope/internal/core"
)

// statusOverloaded is the non-standard status Anthropic uses when saturated.
const statusOverloaded = 529

// mapProviderError classifies a driver error into the platform error
// taxonomy. It returns nil for a nil error.
func mapProviderError(platform core.Platform, err error) *core.PlatformError {
	if err == nil {
		return nil
	}

	var already *core.PlatformError
	if errors.As(err, &already) {
		return already
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &core.PlatformError{Kind: core.ErrorTimeout, Platform: platform, Message: "provider request timed out", Err: err}
	}
	if errors.Is(err, driver.ErrMissingAPIKey) {
		return &core.PlatformError{Kind: core.ErrorAuthentication, Platform: platform, Message: "no API key configured", Err: err}
	}
	if errors.Is(err, driver.ErrMalformedResponse) {
		return &core.PlatformError{Kind: core.ErrorPermanent, Platform: platform, Message: "provider returned an unreadable response", Err: err}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		mapped := &core.PlatformError{
			Platform:   platform,
			StatusCode: perr.StatusCode,
			Message:    strings.TrimSpace(perr.Message),
			Err:        err,
		}
		status := perr.StatusCode
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			mapped.Kind = core.ErrorAuthentication
		case status == http.StatusTooManyRequests:
			mapped.Kind = core.ErrorTransient
			mapped.RetryAfter = perr.RetryAfter
		case status == http.StatusRequestTimeout:
			mapped.Kind = core.ErrorTransient
		case status >= 500 && status <= 599, status == statusOverloaded:
			mapped.Kind = core.ErrorTransient
			mapped.RetryAfter = perr.RetryAfter
		default:
			mapped.Kind = core.ErrorPermanent
		}
		if mapped.Message == "" {
			mapped.Message = http.StatusText(status)
		}
		return mapped
	}

	// *url.Error satisfies net.Error, so transport failures land here.
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &core.PlatformError{Kind: core.ErrorTimeout, Platform: platform, Message: "provider request timed out", Err: err}
		}
		return &core.PlatformError{Kind: core.ErrorTransient, Platform: platform, Message: "provider unreachable", Err: err}
	}

	return &core.PlatformError{Kind: core.ErrorPermanent, Platform: platform, Message: "provider request failed", Err: err}
}
