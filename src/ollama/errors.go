package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Common error variables
var (
	// ErrTimeout indicates a connect or read timeout against the endpoint.
	ErrTimeout = errors.New("endpoint timed out")

	// ErrEmptyResponse indicates the endpoint returned no reply content.
	ErrEmptyResponse = errors.New("empty response from endpoint")
)

// APIError represents a non-2xx or otherwise malformed response from the
// endpoint. It is never retried: only timeouts are transient here.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("endpoint error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("endpoint error %d", e.StatusCode)
}

// TimeoutError wraps a timeout with the retry context it exhausted.
type TimeoutError struct {
	Operation string
	Attempts  int
	Duration  time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %d attempts (%v per call): %v",
		e.Operation, e.Attempts, e.Duration, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is implements error matching.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// IsTimeout reports whether err is a connect/read timeout, the only
// failure class the client retries.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTimeout) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
