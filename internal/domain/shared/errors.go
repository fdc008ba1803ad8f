// Package shared contains common domain types, errors, and value objects
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Store errors
	ErrStoreFailure = errors.New("store failure")
	ErrTimeout      = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "achievement", "ranking"
	Op      string // Operation that failed, e.g., "CheckIn", "Rank"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e == target {
		return true
	}
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Session domain errors. These are the typed results the command layer
// inspects to pick a user-facing message; they are returned, never panicked.
var (
	// ErrAlreadyOpen rejects a check-in while an open session exists.
	ErrAlreadyOpen = NewDomainError("session", "CheckIn", ErrAlreadyExists, "open session already exists")

	// ErrNoOpenSession rejects a check-out with nothing open.
	ErrNoOpenSession = NewDomainError("session", "CheckOut", ErrNotFound, "no open session")

	// ErrSessionClosed rejects a second check-out of the same session.
	ErrSessionClosed = NewDomainError("session", "Close", ErrInvalidState, "session already closed")

	// ErrStoreUnavailable signals a failed or timed-out store transaction.
	// Transient; the caller may retry the whole command.
	ErrStoreUnavailable = NewDomainError("store", "Tx", ErrStoreFailure, "durable store unavailable")
)

// Achievement domain errors.
var (
	ErrUnknownKind = NewDomainError("achievement", "Validate", ErrInvalidInput, "unknown achievement kind")
)

// IsAlreadyOpen checks if the error is an "already open" rejection.
func IsAlreadyOpen(err error) bool {
	return errors.Is(err, ErrAlreadyOpen)
}

// IsNoOpenSession checks if the error is a "no open session" rejection.
func IsNoOpenSession(err error) bool {
	return errors.Is(err, ErrNoOpenSession)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreUnavailable checks if the error is a transient store failure.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreFailure) || errors.Is(err, ErrTimeout)
}
