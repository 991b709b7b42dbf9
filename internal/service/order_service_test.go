package service

import (
	"errors"
	"testing"

	"reseller-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitPriceSnapshotSelection(t *testing.T) {
	discounted := &models.Product{BasePrice: 10000, DiscountPrice: 8000}
	assert.Equal(t, int64(8000), discounted.UnitPrice())

	fullPrice := &models.Product{BasePrice: 10000, DiscountPrice: 0}
	assert.Equal(t, int64(10000), fullPrice.UnitPrice())
}

func TestOrderTotalComputation(t *testing.T) {
	// basePrice 100.00, discountPrice 80.00, quantity 2, shipping 50.00
	// => total 80*2 + 50 = 210.00
	product := &models.Product{BasePrice: 10000, DiscountPrice: 8000}
	quantity := 2
	shippingFee := int64(5000)

	subtotal := product.UnitPrice() * int64(quantity)
	total := subtotal + shippingFee

	assert.Equal(t, int64(16000), subtotal)
	assert.Equal(t, int64(21000), total)
}

func TestValidateCreateRequest(t *testing.T) {
	valid := func() *CreateOrderRequest {
		return &CreateOrderRequest{
			Items:         []OrderItemRequest{{ProductID: 1, Quantity: 1}},
			PaymentMethod: models.PaymentMethodQRCode,
			Street:        "123 Rizal St",
			City:          "Manila",
			Zip:           "1000",
			ContactInfo:   "09171234567",
		}
	}

	assert.NoError(t, validateCreateRequest(5, valid()))

	tests := []struct {
		name   string
		owner  int64
		mutate func(*CreateOrderRequest)
		field  string
	}{
		{"missing owner", 0, func(r *CreateOrderRequest) {}, "owner_id"},
		{"no items", 5, func(r *CreateOrderRequest) { r.Items = nil }, "items"},
		{"zero quantity", 5, func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"negative quantity", 5, func(r *CreateOrderRequest) { r.Items[0].Quantity = -2 }, "items[0].quantity"},
		{"bad payment method", 5, func(r *CreateOrderRequest) { r.PaymentMethod = "CASH" }, "payment_method"},
		{"missing city", 5, func(r *CreateOrderRequest) { r.City = "" }, "shipping_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)

			err := validateCreateRequest(tt.owner, req)
			require.Error(t, err)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestCheckIdempotentReplay(t *testing.T) {
	existing := &models.Order{ID: 42, OwnerID: 7, Status: models.OrderStatusAwaitingPayment}

	assert.NoError(t, checkIdempotentReplay(existing, 7))

	// A foreign key match must never hand back someone else's order.
	err := checkIdempotentReplay(existing, 8)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "idempotency_key", validationErr.Field)
}

func TestSyncWarningUnwraps(t *testing.T) {
	warning := &SyncWarning{Category: "barong", Delta: -3, Err: ErrInsufficientStock}

	assert.True(t, errors.Is(warning, ErrInsufficientStock))
	assert.Contains(t, warning.Error(), "barong")
}
