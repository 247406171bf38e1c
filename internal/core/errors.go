package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a platform failure.
type ErrorKind string

const (
	ErrorAuthentication    ErrorKind = "authentication_error"
	ErrorTransient         ErrorKind = "transient_error"
	ErrorPermanent         ErrorKind = "permanent_error"
	ErrorRateLimitExceeded ErrorKind = "rate_limit_exceeded"
	ErrorCircuitOpen       ErrorKind = "circuit_open"
	ErrorTimeout           ErrorKind = "timeout_error"
)

// PlatformError is the error type returned by platform clients and the
// orchestration primitives wrapped around them.
type PlatformError struct {
	Kind       ErrorKind
	Platform   Platform
	StatusCode int
	// RetryAfter is the server supplied minimum delay before the next attempt.
	RetryAfter time.Duration
	Message    string
	Err        error
}

func (e *PlatformError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	prefix := string(e.Kind)
	if e.Platform != "" {
		prefix = fmt.Sprintf("%s: %s", e.Platform, e.Kind)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %s", prefix, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

func (e *PlatformError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewPlatformError builds a PlatformError without a cause.
func NewPlatformError(platform Platform, kind ErrorKind, format string, args ...any) *PlatformError {
	return &PlatformError{
		Kind:     kind,
		Platform: platform,
		Message:  fmt.Sprintf(format, args...),
	}
}

// RetryError reports that retries were exhausted.
type RetryError struct {
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf extracts the error kind. Context deadline and cancellation map to
// timeout; unclassified errors are permanent.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var platformErr *PlatformError
	if errors.As(err, &platformErr) && platformErr.Kind != "" {
		return platformErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTimeout
	}
	return ErrorPermanent
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case ErrorTransient, ErrorTimeout:
		return true
	default:
		return false
	}
}

// RetryAfterOf returns the server supplied retry delay carried by err.
func RetryAfterOf(err error) time.Duration {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.RetryAfter
	}
	return 0
}

// AttemptsOf returns the attempt count recorded by a RetryError, or 1.
func AttemptsOf(err error) int {
	var retryErr *RetryError
	if errors.As(err, &retryErr) && retryErr.Attempts > 0 {
		return retryErr.Attempts
	}
	return 1
}

// CountsAsFailure reports whether err reflects platform health. Credential
// problems and local budget or circuit decisions do not.
func CountsAsFailure(err error) bool {
	switch KindOf(err) {
	case ErrorTransient, ErrorTimeout, ErrorPermanent:
		return true
	default:
		return false
	}
}
