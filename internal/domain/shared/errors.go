// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
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
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Metric errors
	ErrInvalidMetrics = errors.New("invalid session metrics")

	// State errors
	ErrInvalidState     = errors.New("invalid state")
	ErrStateTransition  = errors.New("invalid state transition")
	ErrAlreadyComplete  = errors.New("already complete")
	ErrAlreadyProcessed = errors.New("already processed")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "challenge", "progression", "session"
	Op      string // Operation that failed, e.g., "Lookup", "Submit"
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

// Challenge catalog errors
var (
	ErrUnknownDomain     = NewDomainError("challenge", "Validate", ErrInvalidInput, "unknown practice domain")
	ErrLevelNotFound     = NewDomainError("challenge", "Lookup", ErrNotFound, "challenge level not defined")
	ErrNoLevelsForDomain = NewDomainError("challenge", "LevelsFor", ErrNotFound, "domain has no challenge levels")
)

// Progression errors
var (
	ErrProgressionNotFound  = NewDomainError("progression", "Find", ErrNotFound, "progression state not found")
	ErrAllLevelsComplete    = NewDomainError("progression", "Start", ErrAlreadyComplete, "all challenge levels completed")
	ErrProgressionConflict  = NewDomainError("progression", "Save", ErrOptimisticLock, "progression was modified concurrently")
	ErrLevelAlreadyPassed   = NewDomainError("progression", "Submit", ErrConcurrentModification, "progression has already advanced past the requested level")
	ErrAttemptAlreadyActive = NewDomainError("progression", "Start", ErrAlreadyExists, "an attempt is already in progress")
)

// Session errors
var (
	ErrSessionNotFound = NewDomainError("session", "Find", ErrNotFound, "session record not found")
	ErrSessionFinal    = NewDomainError("session", "Amend", ErrInvalidState, "session record is finalized")
	ErrMissingMetrics  = NewDomainError("session", "Evaluate", ErrInvalidMetrics, "required metric fields are missing")
	ErrEmptyRMSSamples = NewDomainError("session", "Evaluate", ErrInvalidMetrics, "rms sample sequence is empty")
	ErrUnknownEmotion  = NewDomainError("session", "Evaluate", ErrInvalidMetrics, "unknown emotion label in breakdown")
	ErrNonFiniteMetric = NewDomainError("session", "Evaluate", ErrInvalidMetrics, "metric value is not a finite number")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a lost-race concurrency error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOptimisticLock) || errors.Is(err, ErrConcurrentModification)
}

// IsInvalidMetrics checks if the error is a malformed-metrics error.
func IsInvalidMetrics(err error) bool {
	return errors.Is(err, ErrInvalidMetrics)
}

// IsAlreadyComplete checks if the error indicates no next level exists.
func IsAlreadyComplete(err error) bool {
	return errors.Is(err, ErrAlreadyComplete)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}
