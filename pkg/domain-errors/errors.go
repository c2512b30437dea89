// Package dErrors defines code-carrying domain errors shared across modules.
//
// Services construct these at the boundary where an infrastructure fact or
// validation failure becomes a domain outcome. Handlers translate codes to
// HTTP statuses via ToHTTPStatus; nothing below the transport layer should
// reason about HTTP.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for transport mapping and branching.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal"
	CodeUnavailable  Code = "unavailable"

	// CodeNotVerified rejects operations that require a verified identity.
	CodeNotVerified Code = "identity_not_verified"
	// CodeAlreadyBound rejects a second active nonce binding for an org;
	// callers must rotate instead.
	CodeAlreadyBound Code = "already_bound"
	// CodeInsufficientCohort aborts a calibration round whose trusted
	// cohort fell below the k-anonymity floor. No partial result exists.
	CodeInsufficientCohort Code = "insufficient_k_anonymity"
)

// DomainError is the concrete error type carrying a Code.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New builds a domain error with the given code and message.
func New(code Code, message string) error {
	return &DomainError{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/As chains.
func Wrap(err error, code Code, message string) error {
	return &DomainError{Code: code, Message: message, cause: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *DomainError
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		de = nil
	}
	return false
}

// CodeOf extracts the outermost code, defaulting to CodeInternal so that
// unclassified failures never leak as client errors.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeNotVerified:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyBound:
		return http.StatusConflict
	case CodeInsufficientCohort:
		return http.StatusUnprocessableEntity
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
