package orders

import (
	"github.com/cargoflow/backend/pkg/enums"
)

// allowedTransitions is the authoritative order status table. It is fixed at
// init and never mutated at runtime.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusCreated:   {enums.OrderStatusAssigned, enums.OrderStatusCancelled},
	enums.OrderStatusAssigned:  {enums.OrderStatusPickedUp, enums.OrderStatusCancelled},
	enums.OrderStatusPickedUp:  {enums.OrderStatusInTransit, enums.OrderStatusCancelled},
	enums.OrderStatusInTransit: {enums.OrderStatusDelivered, enums.OrderStatusFailed},
	enums.OrderStatusDelivered: {},
	enums.OrderStatusFailed:    {},
	enums.OrderStatusCancelled: {},
}

// cancellableStatuses are the only states an order may be cancelled from.
var cancellableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusCreated:  true,
	enums.OrderStatusAssigned: true,
	enums.OrderStatusPickedUp: true,
}

// CanTransition reports whether the move from current to target is permitted.
// It is a pure lookup; callers own error reporting.
func CanTransition(current, target enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == target {
			return true
		}
	}
	return false
}

// IsCancellable reports whether an order in the given status may be cancelled.
func IsCancellable(status enums.OrderStatus) bool {
	return cancellableStatuses[status]
}

// AllowedTargets returns a copy of the legal targets for a status.
func AllowedTargets(status enums.OrderStatus) []enums.OrderStatus {
	targets := allowedTransitions[status]
	out := make([]enums.OrderStatus, len(targets))
	copy(out, targets)
	return out
}
