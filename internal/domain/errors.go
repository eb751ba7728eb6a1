package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Every failure the service reports is, or
// wraps, exactly one of these.
var (
	// ErrOperationFailed covers any failed call to a remote dependency:
	// transport errors, non-2xx responses, undecodable bodies and open breakers.
	ErrOperationFailed = errors.New("operation failed")

	// ErrCardNotFound is returned when a card id does not resolve.
	ErrCardNotFound = errors.New("card not found")

	// ErrInsufficientBalance is returned when no associated account can cover an amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrMalformedCardData is returned when input fails validation.
	ErrMalformedCardData = errors.New("malformed card data")

	// ErrAccountAlreadyAssociated is returned when an account is already linked to the card.
	ErrAccountAlreadyAssociated = errors.New("account already associated with this card")

	// ErrDuplicateCardNumber is returned when a unique card number cannot be assigned.
	ErrDuplicateCardNumber = errors.New("card with this number already exists")
)

// Validation failures, all reported as ErrMalformedCardData.
var (
	ErrCardTypeInvalid        = fmt.Errorf("%w: card type must be debit or credit", ErrMalformedCardData)
	ErrClientIDEmpty          = fmt.Errorf("%w: client id cannot be empty", ErrMalformedCardData)
	ErrMainAccountIDEmpty     = fmt.Errorf("%w: main account id cannot be empty", ErrMalformedCardData)
	ErrAccountIDEmpty         = fmt.Errorf("%w: account id cannot be empty", ErrMalformedCardData)
	ErrDuplicateAccountIDs    = fmt.Errorf("%w: associated account ids must be unique", ErrMalformedCardData)
	ErrCardNumberInvalid      = fmt.Errorf("%w: card number is not valid", ErrMalformedCardData)
	ErrAmountNotPositive      = fmt.Errorf("%w: amount must be greater than zero", ErrMalformedCardData)
	ErrAmountScale            = fmt.Errorf("%w: amount must have at most 4 decimal places", ErrMalformedCardData)
	ErrAmountTooLarge         = fmt.Errorf("%w: amount must be less than 10^15", ErrMalformedCardData)
	ErrOperationTypeInvalid   = fmt.Errorf("%w: operation type must be payment or withdrawal", ErrMalformedCardData)
	ErrInvalidSagaTransition  = errors.New("invalid saga state transition")
	ErrInvalidPaginationParam = fmt.Errorf("%w: page must be >= 0 and size between 1 and 100", ErrMalformedCardData)
)
