package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrForbidden          = errors.New("forbidden")

	// Checkout / ledger errors
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrMixedPaymentMismatch = errors.New("cart contains items marked for cash payment")
	ErrCardDetailsRequired  = errors.New("card details required")
	ErrPaymentDeclined      = errors.New("payment declined")
	ErrTokenization         = errors.New("card tokenization failed")
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrCheckoutInProgress   = errors.New("another checkout is in progress for this user")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrNoAccess             = errors.New("no access to product")
)

// InsufficientCreditsError carries the balance observed at check time.
// errors.Is(err, ErrInsufficientCredits) holds for it.
type InsufficientCreditsError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("Insufficient credits. Balance: %d, Required: %d", e.Balance, e.Required)
}

func (e *InsufficientCreditsError) Unwrap() error { return ErrInsufficientCredits }

// PaymentDeclinedError is returned when the gateway refuses (or fails to answer) a charge.
type PaymentDeclinedError struct {
	Provider string
	Reason   string
}

func (e *PaymentDeclinedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("payment declined by %s", e.Provider)
	}
	return fmt.Sprintf("payment declined by %s: %s", e.Provider, e.Reason)
}

func (e *PaymentDeclinedError) Unwrap() error { return ErrPaymentDeclined }

// TokenizationError reports malformed card data.
type TokenizationError struct {
	Reason string
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("card tokenization failed: %s", e.Reason)
}

func (e *TokenizationError) Unwrap() error { return ErrTokenization }
