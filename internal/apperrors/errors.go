package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
// It is also returned when a caller asks for another user's job, so that
// foreign tokens are indistinguishable from unknown ones.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidAmount indicates a non-positive credit or debit amount.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrInsufficientCredits indicates a debit larger than the current balance.
var ErrInsufficientCredits = errors.New("insufficient credits")

// ErrInvalidTransition indicates an illegal job status change.
var ErrInvalidTransition = errors.New("invalid job status transition")

// ErrConcurrencyConflict indicates that a balance update kept losing against
// concurrent mutations and the bounded retry budget was exhausted.
var ErrConcurrencyConflict = errors.New("concurrent update conflict")

// AppError wraps a lower-level failure with an HTTP-ish status code for
// repository and platform layers that cannot pick the final HTTP status.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}
