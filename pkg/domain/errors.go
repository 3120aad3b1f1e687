// Package domain holds the error kinds shared by the sync services and the
// HTTP layer.
package domain

import (
	"errors"
	"fmt"
)

// Code classifies a DomainError
type Code string

const (
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeValidation      Code = "VALIDATION_ERROR"
	ErrCodeConflict        Code = "CONFLICT"
	ErrCodeBadRequest      Code = "BAD_REQUEST"
	ErrCodeExternalService Code = "EXTERNAL_SERVICE_ERROR"
	// ErrCodeInternal is reported for any error outside this package
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// DomainError carries a code, an operator-facing message and an optional
// cause
type DomainError struct {
	Code    Code
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	s := string(e.Code) + ": " + e.Message
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *DomainError) Unwrap() error { return e.Err }

func newError(code Code, msg string, cause error) error {
	return &DomainError{Code: code, Message: msg, Err: cause}
}

// NewNotFoundError reports a missing lead, user, log entry or token
func NewNotFoundError(resource string) error {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

func NewValidationError(msg string) error { return newError(ErrCodeValidation, msg, nil) }

func NewConflictError(msg string) error { return newError(ErrCodeConflict, msg, nil) }

func NewBadRequestError(msg string) error { return newError(ErrCodeBadRequest, msg, nil) }

// NewExternalServiceError wraps a failure returned by the CRM or its
// token endpoint
func NewExternalServiceError(service string, err error) error {
	return newError(ErrCodeExternalService, service+" request failed", err)
}

// CodeOf returns the code of the first DomainError in err's chain
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternal
}

func IsNotFound(err error) bool        { return CodeOf(err) == ErrCodeNotFound }
func IsValidation(err error) bool      { return CodeOf(err) == ErrCodeValidation }
func IsConflict(err error) bool        { return CodeOf(err) == ErrCodeConflict }
func IsBadRequest(err error) bool      { return CodeOf(err) == ErrCodeBadRequest }
func IsExternalService(err error) bool { return CodeOf(err) == ErrCodeExternalService }
