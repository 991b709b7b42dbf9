package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusAwaitingPayment, StatusPendingVerification},
		{StatusAwaitingPayment, StatusCancelled},
		{StatusPendingVerification, StatusProcessing},
		{StatusPendingVerification, StatusCancelled},
		{StatusProcessing, StatusShipped},
		{StatusProcessing, StatusCancelled},
		{StatusShipped, StatusDelivered},
	}

	all := []Status{
		StatusAwaitingPayment, StatusPendingVerification, StatusProcessing,
		StatusShipped, StatusDelivered, StatusCancelled,
	}

	isAllowed := func(from, to Status) bool {
		for _, pair := range allowed {
			if pair.from == from && pair.to == to {
				return true
			}
		}
		return false
	}

	// Every pair not in the table must be rejected, self-transitions included.
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, isAllowed(from, to), CanTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestCanTransitionRejectsSkipsAndBackwards(t *testing.T) {
	assert.False(t, CanTransition(StatusAwaitingPayment, StatusShipped))
	assert.False(t, CanTransition(StatusAwaitingPayment, StatusDelivered))
	assert.False(t, CanTransition(StatusShipped, StatusShipped))
	assert.False(t, CanTransition(StatusShipped, StatusCancelled))
	assert.False(t, CanTransition(StatusDelivered, StatusCancelled))
	assert.False(t, CanTransition(StatusProcessing, StatusAwaitingPayment))
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, Terminal(StatusDelivered))
	assert.True(t, Terminal(StatusCancelled))
	assert.False(t, Terminal(StatusAwaitingPayment))
	assert.False(t, Terminal(StatusPendingVerification))
	assert.False(t, Terminal(StatusProcessing))
	assert.False(t, Terminal(StatusShipped))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusProcessing))
	assert.False(t, ValidStatus(Status("SHIPPING")))
	assert.False(t, ValidStatus(Status("")))
}

func TestStockSideEffectPredicates(t *testing.T) {
	assert.True(t, DeductsStock(StatusPendingVerification, StatusProcessing))
	assert.False(t, DeductsStock(StatusAwaitingPayment, StatusPendingVerification))

	assert.True(t, RestoresStock(StatusProcessing, StatusCancelled))
	assert.False(t, RestoresStock(StatusPendingVerification, StatusCancelled))
	assert.False(t, RestoresStock(StatusAwaitingPayment, StatusCancelled))

	assert.True(t, RequiresTracking(StatusShipped))
	assert.False(t, RequiresTracking(StatusDelivered))
}
