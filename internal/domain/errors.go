package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced before any network call is made.
var (
	// ErrSessionNotFound is returned when a session id does not resolve.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidInput marks validation failures (empty question, bad chunk
	// parameters). Wrapped with %w so callers can errors.Is against it.
	ErrInvalidInput = errors.New("invalid input")
)

// Upstream operation names used in error messages.
const (
	OpEmbedding  = "embedding"
	OpGeneration = "generation"
)

// UnavailableError reports a transient upstream failure that persisted after
// bounded retries. Cause carries the last underlying error.
type UnavailableError struct {
	Op    string
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Op, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// RejectedError reports a permanent upstream failure (bad credential,
// malformed input). It is never retried.
type RejectedError struct {
	Op     string
	Status int
	Cause  error
}

func (e *RejectedError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s rejected (status %d): %v", e.Op, e.Status, e.Cause)
	}
	return fmt.Sprintf("%s rejected: %v", e.Op, e.Cause)
}

func (e *RejectedError) Unwrap() error { return e.Cause }
