package mint

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/398ja/cashu-recovery/internal/cashu"
)

// TransportError wraps a network-level failure: the request may never have
// reached the mint, so repeating it is always safe.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mint transport failure: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError marks a response that violates the protocol contract:
// undecodable bodies, misaligned arrays, signatures for points that were
// never submitted. Such responses do not heal on retry.
type ProtocolError struct {
	URL    string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mint protocol violation: %s: %s", e.URL, e.Reason)
}

// RejectedError carries a mint's explicit refusal of a request, including
// the structured error body when one was sent.
type RejectedError struct {
	URL        string
	StatusCode int
	Cause      *cashu.Error
}

func (e *RejectedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mint rejected request: %s: status %d: %s (code %d)", e.URL, e.StatusCode, e.Cause.Detail, e.Cause.Code)
	}
	return fmt.Sprintf("mint rejected request: %s: status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the rejection is transient. Rate limits,
// oversized batches and server-side failures clear up after a cooldown;
// anything else is a hard refusal.
func (e *RejectedError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusRequestEntityTooLarge:
		return true
	}
	return e.StatusCode >= 500
}

// IsRetryable reports whether err is worth another attempt against the
// same mint.
func IsRetryable(err error) bool {
	var transport *TransportError
	if errors.As(err, &transport) {
		return true
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Retryable()
	}
	return false
}
