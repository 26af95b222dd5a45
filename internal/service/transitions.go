package service

import (
	"fmt"

	"github.com/menuboard/api/internal/database"
)

// allowedTransitions defines valid order status changes requested by a
// terminal. completed is absent on purpose: only a final payment sets it.
var allowedTransitions = map[database.OrderStatus][]database.OrderStatus{
	database.OrderStatusPending:   {database.OrderStatusPreparing, database.OrderStatusCancelled},
	database.OrderStatusPreparing: {database.OrderStatusReady, database.OrderStatusCancelled},
	database.OrderStatusReady:     {database.OrderStatusCancelled},
}

// allowedItemTransitions: pending and prepared toggle for mis-taps, served
// cannot be undone.
var allowedItemTransitions = map[database.OrderItemStatus][]database.OrderItemStatus{
	database.OrderItemStatusPending:  {database.OrderItemStatusPrepared},
	database.OrderItemStatusPrepared: {database.OrderItemStatusPending, database.OrderItemStatusServed},
}

func isActive(s database.OrderStatus) bool {
	switch s {
	case database.OrderStatusPending, database.OrderStatusPreparing, database.OrderStatusReady:
		return true
	}
	return false
}

func validateStatusTransition(from, to database.OrderStatus) error {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: order %s -> %s", ErrInvalidTransition, from, to)
}

func validateItemTransition(from, to database.OrderItemStatus) error {
	for _, allowed := range allowedItemTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: item %s -> %s", ErrInvalidTransition, from, to)
}
