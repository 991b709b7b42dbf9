package service

import (
	"testing"

	"reseller-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupItemsByCategory(t *testing.T) {
	items := []models.OrderItem{
		{ProductID: 1, Category: "saya", Quantity: 2},
		{ProductID: 2, Category: "barong", Quantity: 1},
		{ProductID: 3, Category: "saya", Quantity: 3},
	}

	sums := GroupItemsByCategory(items)

	assert.Equal(t, map[string]int{"saya": 5, "barong": 1}, sums)
}

func TestOrderAdjustmentsDeduction(t *testing.T) {
	items := []models.OrderItem{
		{ProductID: 1, Category: "saya", Quantity: 2},
		{ProductID: 2, Category: "barong", Quantity: 1},
		{ProductID: 3, Category: "saya", Quantity: 3},
	}

	adjustments, err := OrderAdjustments(items, 42, 7, false)
	require.NoError(t, err)
	require.Len(t, adjustments, 2)

	byCategory := make(map[string]int)
	for _, adj := range adjustments {
		byCategory[adj.Category] = adj.Delta
		assert.Equal(t, models.ActionDeduction, adj.ActionType)
		assert.True(t, adj.ReferenceID.Valid)
		assert.Equal(t, int64(42), adj.ReferenceID.Int64)
		assert.Equal(t, int64(7), adj.UpdatedBy)
	}
	assert.Equal(t, map[string]int{"saya": -5, "barong": -1}, byCategory)
}

func TestOrderAdjustmentsRestoration(t *testing.T) {
	items := []models.OrderItem{
		{ProductID: 1, Category: "fabrics", Quantity: 4},
	}

	adjustments, err := OrderAdjustments(items, 42, 7, true)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)

	assert.Equal(t, "fabrics", adjustments[0].Category)
	assert.Equal(t, 4, adjustments[0].Delta)
	assert.Equal(t, models.ActionRestoration, adjustments[0].ActionType)
}

func TestOrderAdjustmentsDeterministicOrder(t *testing.T) {
	items := []models.OrderItem{
		{Category: "fabrics", Quantity: 1},
		{Category: "saya", Quantity: 1},
		{Category: "barong", Quantity: 1},
	}

	// Categories come out in the fixed model order regardless of item order,
	// which keeps multi-category transactions lock-ordered.
	adjustments, err := OrderAdjustments(items, 1, 1, false)
	require.NoError(t, err)
	require.Len(t, adjustments, 3)
	assert.Equal(t, "saya", adjustments[0].Category)
	assert.Equal(t, "barong", adjustments[1].Category)
	assert.Equal(t, "fabrics", adjustments[2].Category)
}

func TestOrderAdjustmentsRejectsUnknownCategory(t *testing.T) {
	items := []models.OrderItem{
		{Category: "saya", Quantity: 2},
		{Category: "jewelry", Quantity: 1},
	}

	adjustments, err := OrderAdjustments(items, 42, 7, false)
	require.Error(t, err)
	assert.Nil(t, adjustments)
	assert.Contains(t, err.Error(), "jewelry")
}
