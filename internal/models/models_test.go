package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCategory(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, ValidCategory(c))
	}
	assert.False(t, ValidCategory("shoes"))
	assert.False(t, ValidCategory(""))
	assert.False(t, ValidCategory("Saya"))
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentMethodQRCode))
	assert.True(t, ValidPaymentMethod(PaymentMethodBankTransfer))
	assert.False(t, ValidPaymentMethod("CASH"))
	assert.False(t, ValidPaymentMethod(""))
}

func TestUnitPrice(t *testing.T) {
	p := Product{BasePrice: 10000, DiscountPrice: 8000}
	assert.Equal(t, int64(8000), p.UnitPrice())

	p.DiscountPrice = 0
	assert.Equal(t, int64(10000), p.UnitPrice())
}
