// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"
)

// Error classes. Handlers translate these into HTTP status codes; anything
// else is an internal error.
var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("too many attempts")
)

// Specific errors within a class.
var (
	ErrEmailTaken         = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrOABTaken           = fmt.Errorf("%w: OAB registration already in use", ErrConflict)
	ErrCNPJTaken          = fmt.Errorf("%w: CNPJ already registered", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrAccountInactive    = fmt.Errorf("%w: account is inactive", ErrForbidden)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", ErrUnauthorized)
)

// ValidationError reports a single malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Reasons an access credential is rejected.
const (
	ReasonMissing        = "missing"
	ReasonInvalid        = "invalid"
	ReasonExpired        = "expired"
	ReasonPurpose        = "purpose"
	ReasonUnknownSubject = "unknown_subject"
	ReasonInactive       = "inactive"
)

// AuthError explains why the identity resolver rejected a credential.
// It matches ErrForbidden for deactivated accounts and ErrUnauthorized otherwise.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == ReasonInactive {
		return "account is inactive"
	}
	return "authentication required"
}

// Is maps the reason onto the error class.
func (e *AuthError) Is(target error) bool {
	if e.Reason == ReasonInactive {
		return target == ErrForbidden
	}
	return target == ErrUnauthorized
}
