package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Ledger errors
	ErrStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrAlreadyRolled      ErrorCode = "ALREADY_ROLLED"

	// Command errors
	ErrPermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrWrongChannel     ErrorCode = "WRONG_CHANNEL"
	ErrOnCooldown       ErrorCode = "ON_COOLDOWN"
	ErrInvalidArgument  ErrorCode = "INVALID_ARGUMENT"

	// System errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// RollError is an error carrying a code the command layer can render
type RollError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *RollError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *RollError) Unwrap() error {
	return e.Err
}

// NewRollError creates a new RollError
func NewRollError(code ErrorCode, message string) *RollError {
	return &RollError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a RollError
func WrapError(code ErrorCode, message string, err error) *RollError {
	return &RollError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsRollError reports whether err, or anything it wraps, is a RollError with the given code
func IsRollError(err error, code ErrorCode) bool {
	var rollErr *RollError
	if !As(err, &rollErr) {
		return false
	}
	return rollErr.Code == code
}

// As finds the first RollError in err's chain
func As(err error, target **RollError) bool {
	if err == nil || target == nil {
		return false
	}
	return errors.As(err, target)
}
