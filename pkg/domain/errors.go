package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is returned when a requested asset is absent from the
// current listings snapshot.
var ErrNotFound = errors.New("cryptocurrency not found")

// UpstreamError describes a failed call to the market-data API
type UpstreamError struct {
	Endpoint string
	// Status is the upstream HTTP status, or 0 when no response was received.
	Status  int
	Message string
	Err     error
}

// Error implements error
func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("upstream %s: %s", e.Endpoint, e.Message)
	}
	return fmt.Sprintf("upstream %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// Unwrap returns the underlying cause
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamStatusError builds an error for a non-2xx upstream response.
// An empty message falls back to the HTTP status text.
func NewUpstreamStatusError(endpoint string, status int, message string) *UpstreamError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &UpstreamError{
		Endpoint: endpoint,
		Status:   status,
		Message:  message,
	}
}

// NewMalformedResponseError builds an error for an upstream body that
// could not be interpreted.
func NewMalformedResponseError(endpoint string, status int, err error) *UpstreamError {
	return &UpstreamError{
		Endpoint: endpoint,
		Status:   status,
		Message:  fmt.Sprintf("malformed response: %v", err),
		Err:      err,
	}
}
