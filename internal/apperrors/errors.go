package apperrors

import (
	"errors"
	"fmt"
)

// Domain error taxonomy for the ledger service.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidAccountID   = errors.New("invalid account ID")
	ErrSameAccount        = errors.New("source and destination accounts cannot be the same")
	ErrUnauthorized       = errors.New("caller is not authorized for this operation")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// StorageError wraps an unexpected persistence fault with the operation that
// produced it.
type StorageError struct {
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during '%s': %v", e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func NewStorageError(operation string, cause error) error {
	return &StorageError{
		Operation: operation,
		Cause:     cause,
	}
}

// ConflictError marks a transient serialization or lock-wait failure. The
// operation left no partial state behind and is safe to retry.
type ConflictError struct {
	Operation string
	Cause     error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transient conflict during '%s': %v", e.Operation, e.Cause)
}

func (e *ConflictError) Unwrap() error {
	return e.Cause
}

func NewConflictError(operation string, cause error) error {
	return &ConflictError{
		Operation: operation,
		Cause:     cause,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrUsernameTaken)
}

func IsSameAccount(err error) bool {
	return errors.Is(err, ErrSameAccount)
}

func IsInvalidAmount(err error) bool {
	return errors.Is(err, ErrInvalidAmount)
}

func IsInvalidAccountID(err error) bool {
	return errors.Is(err, ErrInvalidAccountID)
}

func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}
