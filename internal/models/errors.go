// -----------------------------------------------------------------------
// Service Errors - classified error kinds surfaced through the API
// -----------------------------------------------------------------------

package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a service fault. Kinds map onto HTTP status codes
// at the API boundary and onto retry/propagation policy internally.
type ErrorKind string

const (
	// ErrInvalidInput marks a request that fails schema or semantic checks.
	// Never retried; surfaces as 400.
	ErrInvalidInput ErrorKind = "invalid_input"

	// ErrNotFound marks a reference to a missing run, job, or result. 404.
	ErrNotFound ErrorKind = "not_found"

	// ErrForbiddenTransition marks an illegal job state change,
	// e.g. resume from a non-terminal state. 409.
	ErrForbiddenTransition ErrorKind = "forbidden_transition"

	// ErrTransport marks a per-request wire failure. Recorded on the
	// result row, never surfaced as a job failure.
	ErrTransport ErrorKind = "transport_error"

	// ErrStorage marks a persistent-store access failure. Aborts the
	// current operation; fails the owning job when raised mid-execution.
	ErrStorage ErrorKind = "storage_error"

	// ErrInterrupted is synthesized on restart for jobs found RUNNING.
	ErrInterrupted ErrorKind = "interrupted"
)

// ServiceError is the structured error payload, serialized to callers
// as {"kind": ..., "detail": ...}.
type ServiceError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
	cause  error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the error kind to its API status code.
func (e *ServiceError) HTTPStatus() int {
	switch e.Kind {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrForbiddenTransition:
		return http.StatusConflict
	case ErrStorage, ErrTransport, ErrInterrupted:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewInvalidInput creates an invalid_input error.
func NewInvalidInput(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: ErrInvalidInput, Detail: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a not_found error.
func NewNotFound(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: ErrNotFound, Detail: fmt.Sprintf(format, args...)}
}

// NewForbiddenTransition creates a forbidden_transition error.
func NewForbiddenTransition(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: ErrForbiddenTransition, Detail: fmt.Sprintf(format, args...)}
}

// NewTransport wraps a wire-level failure with the transport_error kind.
func NewTransport(cause error, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: ErrTransport, Detail: fmt.Sprintf(format, args...), cause: cause}
}

// NewStorageError wraps a store failure with the storage_error kind.
func NewStorageError(cause error, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: ErrStorage, Detail: fmt.Sprintf(format, args...), cause: cause}
}

// NewInterrupted creates the synthetic error recorded on jobs found
// RUNNING after a process restart.
func NewInterrupted(detail string) *ServiceError {
	return &ServiceError{Kind: ErrInterrupted, Detail: detail}
}

// KindOf extracts the ErrorKind from an error chain. Unclassified
// errors report as storage_error, the conservative internal default.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
