package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError blocks a request before any network call is made:
// non-positive quantity or price, malformed settings, missing fields.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FundsError means the wallet balance cannot cover the requested amount.
// Checked client-side before submission; the server re-validates.
type FundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %s, have %s", e.Required, e.Available)
}

// StaleQuantityError means a sell asked for more shares than the
// aggregated held quantity for the symbol.
type StaleQuantityError struct {
	Symbol    string
	Requested int
	Held      int
}

func (e *StaleQuantityError) Error() string {
	return fmt.Sprintf("cannot sell %d %s: only %d held", e.Requested, e.Symbol, e.Held)
}

// APIError is a transport or server failure from the market server.
// Cached last-known state stays visible; callers may retry reads.
type APIError struct {
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market server request failed: %v", e.Err)
	}
	return fmt.Sprintf("market server returned %d: %s", e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
