package service

import (
	"errors"
	"fmt"
)

// Caller-facing failures of the order lifecycle. Handlers map these to HTTP
// status codes and stable error kinds; everything else is an internal error.
var (
	ErrVenueNotFound        = errors.New("venue not found or inactive")
	ErrOrderNotFound        = errors.New("order not found")
	ErrCodeNotFound         = errors.New("fulfillment code not found")
	ErrForbidden            = errors.New("not enough permissions")
	ErrWrongPaymentMethod   = errors.New("order is not a cash order")
	ErrPayoutNotConfigured  = errors.New("venue operator has no active payout account")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
)

// ItemNotFoundError identifies a drink that does not exist, belongs to a
// different venue, or is unavailable. The offending reference is included so
// the customer can fix their request.
type ItemNotFoundError struct {
	DrinkID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("drink %s not found or unavailable", e.DrinkID)
}

// MalformedReferenceError reports an identifier that is not a well-formed
// unique reference.
type MalformedReferenceError struct {
	Field string
	Value string
}

func (e *MalformedReferenceError) Error() string {
	return fmt.Sprintf("invalid %s format: %s", e.Field, e.Value)
}
