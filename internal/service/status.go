package service

import "reseller-service/internal/models"

// Status is an order lifecycle state. Only the constants below are legal
// values; transitions are restricted to validNext.
type Status string

const (
	StatusAwaitingPayment     Status = models.OrderStatusAwaitingPayment
	StatusPendingVerification Status = models.OrderStatusPendingVerification
	StatusProcessing          Status = models.OrderStatusProcessing
	StatusShipped             Status = models.OrderStatusShipped
	StatusDelivered           Status = models.OrderStatusDelivered
	StatusCancelled           Status = models.OrderStatusCancelled
)

var validNext = map[Status]map[Status]bool{
	StatusAwaitingPayment:     {StatusPendingVerification: true, StatusCancelled: true},
	StatusPendingVerification: {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing:          {StatusShipped: true, StatusCancelled: true},
	StatusShipped:             {StatusDelivered: true},
	StatusDelivered:           {},
	StatusCancelled:           {},
}

// ValidStatus reports whether s is a known status literal.
func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no transition leaves s.
func Terminal(s Status) bool {
	return len(validNext[s]) == 0
}

// DeductsStock reports whether the from → to transition must deduct the
// category ledger (payment verified, order enters fulfillment).
func DeductsStock(from, to Status) bool {
	return from == StatusPendingVerification && to == StatusProcessing
}

// RestoresStock reports whether the from → to transition must restore the
// category ledger (cancellation after stock was deducted).
func RestoresStock(from, to Status) bool {
	return from == StatusProcessing && to == StatusCancelled
}

// RequiresTracking reports whether the transition needs a tracking number.
func RequiresTracking(to Status) bool {
	return to == StatusShipped
}
