package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/card-service/internal/domain"
	"github.com/phrazzld/card-service/internal/store"
)

// ErrMissingDependency is returned by constructors when a required
// collaborator is nil.
var ErrMissingDependency = errors.New("required dependency is nil")

// CardServiceError is a custom error type for card service errors.
// Err always is, or wraps, one of the domain error kinds.
type CardServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for CardServiceError.
func (e *CardServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("card service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("card service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CardServiceError) Unwrap() error {
	return e.Err
}

// NewCardServiceError creates a new CardServiceError. err is classified
// into a domain error kind first.
func NewCardServiceError(operation, message string, err error) *CardServiceError {
	return &CardServiceError{
		Operation: operation,
		Message:   message,
		Err:       classify(err),
	}
}

var kinds = []error{
	domain.ErrCardNotFound,
	domain.ErrInsufficientBalance,
	domain.ErrMalformedCardData,
	domain.ErrAccountAlreadyAssociated,
	domain.ErrDuplicateCardNumber,
	domain.ErrOperationFailed,
}

// classify maps store errors onto domain kinds. Anything unrecognized is
// reported as ErrOperationFailed with the cause attached.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrCardNotFound) {
		return fmt.Errorf("%w: %w", domain.ErrCardNotFound, err)
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrOperationFailed, err)
}
