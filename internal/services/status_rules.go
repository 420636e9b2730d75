// internal/services/status_rules.go
package services

import "github.com/swapmart/backend/internal/models"

// orderTransitions lists the statuses each order status may move to.
// Completed and Cancelled are terminal.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:    {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped: {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

var shippingTransitions = map[models.ShippingStatus][]models.ShippingStatus{
	models.ShippingStatusPending:   {models.ShippingStatusInTransit, models.ShippingStatusFailed, models.ShippingStatusDelivered},
	models.ShippingStatusInTransit: {models.ShippingStatusDelivered, models.ShippingStatusFailed, models.ShippingStatusPending},
	models.ShippingStatusFailed:    {models.ShippingStatusPending, models.ShippingStatusDelivered},
}

// shippingForOrder is the shipping status an order status implies.
var shippingForOrder = map[models.OrderStatus]models.ShippingStatus{
	models.OrderStatusPending:   models.ShippingStatusPending,
	models.OrderStatusPaid:      models.ShippingStatusPending,
	models.OrderStatusShipped:   models.ShippingStatusInTransit,
	models.OrderStatusCompleted: models.ShippingStatusDelivered,
	models.OrderStatusCancelled: models.ShippingStatusFailed,
}

func CanTransitionOrder(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CanTransitionShipping(from, to models.ShippingStatus) bool {
	for _, next := range shippingTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func AllowedOrderTransitions(from models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus(nil), orderTransitions[from]...)
}

func AllowedShippingTransitions(from models.ShippingStatus) []models.ShippingStatus {
	return append([]models.ShippingStatus(nil), shippingTransitions[from]...)
}

// ShippingStatusFor returns the shipping status implied by an order status.
func ShippingStatusFor(status models.OrderStatus) models.ShippingStatus {
	if s, ok := shippingForOrder[status]; ok {
		return s
	}
	return models.ShippingStatusPending
}

// OrderStatusFor returns the order status a shipping change implies, given
// the order's current status. ok is false when the order should stay put.
func OrderStatusFor(shipping models.ShippingStatus, current models.OrderStatus) (models.OrderStatus, bool) {
	if current.IsTerminal() {
		return current, false
	}
	switch shipping {
	case models.ShippingStatusInTransit:
		if current == models.OrderStatusPaid {
			return models.OrderStatusShipped, true
		}
	case models.ShippingStatusDelivered:
		return models.OrderStatusCompleted, true
	case models.ShippingStatusFailed:
		return models.OrderStatusCancelled, true
	}
	return current, false
}

// isConsistent reports whether the pair satisfies the completion invariant:
// an order is Completed exactly when its shipment is Delivered.
func isConsistent(order models.OrderStatus, shipping models.ShippingStatus) bool {
	return (order == models.OrderStatusCompleted) == (shipping == models.ShippingStatusDelivered)
}
