package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProductRequest(t *testing.T) {
	valid := func() *ProductRequest {
		return &ProductRequest{
			SKU:           "BRG-001",
			Name:          "Classic Barong",
			Category:      "barong",
			BasePrice:     150000,
			DiscountPrice: 120000,
			StockQuantity: 20,
			Published:     true,
		}
	}

	assert.NoError(t, validateProductRequest(valid()))

	tests := []struct {
		name   string
		mutate func(*ProductRequest)
		field  string
	}{
		{"empty sku", func(r *ProductRequest) { r.SKU = "" }, "sku"},
		{"empty name", func(r *ProductRequest) { r.Name = "" }, "name"},
		{"unknown category", func(r *ProductRequest) { r.Category = "shoes" }, "category"},
		{"zero base price", func(r *ProductRequest) { r.BasePrice = 0 }, "base_price"},
		{"negative discount", func(r *ProductRequest) { r.DiscountPrice = -1 }, "discount_price"},
		{"negative stock", func(r *ProductRequest) { r.StockQuantity = -5 }, "stock_quantity"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)

			err := validateProductRequest(req)
			require.Error(t, err)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestEditSyncOpsStockChange(t *testing.T) {
	ops := editSyncOps("BRG-001", "barong", 20, "barong", 35)
	require.Len(t, ops, 1)
	assert.Equal(t, "barong", ops[0].category)
	assert.Equal(t, 15, ops[0].delta)
}

func TestEditSyncOpsNoChange(t *testing.T) {
	assert.Empty(t, editSyncOps("BRG-001", "barong", 20, "barong", 20))
}

func TestEditSyncOpsCategoryChange(t *testing.T) {
	// Moving 20 units from saya to barong with an unchanged quantity must
	// adjust both categories, not net out to nothing.
	ops := editSyncOps("SAY-003", "saya", 20, "barong", 20)
	require.Len(t, ops, 2)

	assert.Equal(t, "saya", ops[0].category)
	assert.Equal(t, -20, ops[0].delta)
	assert.Equal(t, "barong", ops[1].category)
	assert.Equal(t, 20, ops[1].delta)
}

func TestEditSyncOpsCategoryChangeWithNewQuantity(t *testing.T) {
	ops := editSyncOps("SAY-003", "saya", 20, "fabrics", 8)
	require.Len(t, ops, 2)
	assert.Equal(t, -20, ops[0].delta)
	assert.Equal(t, "fabrics", ops[1].category)
	assert.Equal(t, 8, ops[1].delta)
}

func TestEditSyncOpsCategoryChangeZeroStock(t *testing.T) {
	// Nothing to move in either direction.
	assert.Empty(t, editSyncOps("SAY-003", "saya", 0, "barong", 0))
}
