package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every error the engine returns for a rejected command wraps
// exactly one of these, so callers branch with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrConflictingActiveOrder = errors.New("table already has an active order")
	ErrSettlementFailure      = errors.New("settlement failed")
	ErrValidation             = errors.New("validation failed")
)

var (
	ErrOrderNotFound    = fmt.Errorf("%w: order not found", ErrNotFound)
	ErrItemNotFound     = fmt.Errorf("%w: order item not found", ErrNotFound)
	ErrNoActiveOrder    = fmt.Errorf("%w: no active order for table", ErrNotFound)
	ErrOrderNotActive   = fmt.Errorf("%w: order is not active", ErrInvalidTransition)
	ErrCompleteViaPay   = fmt.Errorf("%w: completed is set by the final payment", ErrInvalidTransition)
	ErrServedByStation  = fmt.Errorf("%w: served is set by the serving terminal", ErrInvalidTransition)
	ErrEmptyItems       = fmt.Errorf("%w: items are required", ErrValidation)
	ErrEmptyTable       = fmt.Errorf("%w: table_label is required", ErrValidation)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	ErrInvalidPrice     = fmt.Errorf("%w: price must be a non-negative amount", ErrValidation)
	ErrMissingItemName  = fmt.Errorf("%w: name is required when the product is unknown", ErrValidation)
	ErrInvalidProductID = fmt.Errorf("%w: invalid product_id", ErrValidation)
	ErrInvalidStatus    = fmt.Errorf("%w: unknown status", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: amount must be a non-negative amount", ErrValidation)
	ErrInvalidReceived  = fmt.Errorf("%w: amount_received must cover the amount", ErrValidation)
	ErrInvalidMethod    = fmt.Errorf("%w: invalid payment_method", ErrValidation)
	ErrInvalidDiscount  = fmt.Errorf("%w: invalid discount_type", ErrValidation)
	ErrDiscountRange    = fmt.Errorf("%w: discount outside [0, total]", ErrValidation)
	ErrEmptyPayment     = fmt.Errorf("%w: payment has neither amount nor discount", ErrValidation)
	ErrLedgerMismatch   = fmt.Errorf("%w: payments and discounts do not add up to the total", ErrSettlementFailure)
)
