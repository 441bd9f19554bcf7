package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelHelpersSurviveWrapping(t *testing.T) {
	cases := []struct {
		name     string
		sentinel error
		check    func(error) bool
	}{
		{"not found", ErrAccountNotFound, IsNotFound},
		{"insufficient funds", ErrInsufficientFunds, IsInsufficientFunds},
		{"unauthorized", ErrUnauthorized, IsUnauthorized},
		{"already exists", ErrUsernameTaken, IsAlreadyExists},
		{"same account", ErrSameAccount, IsSameAccount},
		{"invalid amount", ErrInvalidAmount, IsInvalidAmount},
		{"invalid account id", ErrInvalidAccountID, IsInvalidAccountID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.check(tc.sentinel))
			assert.True(t, tc.check(fmt.Errorf("recipient account: %w", tc.sentinel)))
			assert.False(t, tc.check(errors.New("unrelated")))
		})
	}
}

func TestTypedErrorHelpers(t *testing.T) {
	validation := NewValidationError("amount", "must be positive")
	assert.True(t, IsValidationError(validation))
	assert.False(t, IsValidationError(ErrInvalidAmount))

	conflict := NewConflictError("transfer", errors.New("deadlock detected"))
	assert.True(t, IsConflict(conflict))
	assert.True(t, IsConflict(fmt.Errorf("attempt 1: %w", conflict)))
	assert.False(t, IsConflict(NewStorageError("commit", errors.New("io error"))))
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	assert.ErrorIs(t, NewStorageError("begin", cause), cause)
	assert.ErrorIs(t, NewConflictError("transfer", cause), cause)
}
