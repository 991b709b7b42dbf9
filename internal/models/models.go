package models

import (
	"database/sql"
	"time"
)

// Product represents a catalog product. StockQuantity is the available
// (orderable) count; Reserved holds units claimed by orders that have not yet
// entered processing.
type Product struct {
	ID            int64     `db:"id" json:"id"`
	SKU           string    `db:"sku" json:"sku"`
	Name          string    `db:"name" json:"name"`
	Category      string    `db:"category" json:"category"`
	BasePrice     int64     `db:"base_price" json:"base_price"`
	DiscountPrice int64     `db:"discount_price" json:"discount_price"`
	StockQuantity int       `db:"stock_quantity" json:"stock_quantity"`
	Reserved      int       `db:"reserved" json:"reserved"`
	Published     bool      `db:"published" json:"published"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// UnitPrice returns the price snapshotted onto order items: the discount
// price when one is set, otherwise the base price.
func (p *Product) UnitPrice() int64 {
	if p.DiscountPrice > 0 {
		return p.DiscountPrice
	}
	return p.BasePrice
}

// Order represents a reseller order. Prices are integer centavos.
type Order struct {
	ID             int64          `db:"id" json:"id"`
	OwnerID        int64          `db:"owner_id" json:"owner_id"`
	Status         string         `db:"status" json:"status"`
	SubtotalPrice  int64          `db:"subtotal_price" json:"subtotal_price"`
	ShippingFee    int64          `db:"shipping_fee" json:"shipping_fee"`
	TotalPrice     int64          `db:"total_price" json:"total_price"`
	PaymentMethod  string         `db:"payment_method" json:"payment_method"`
	PaymentProof   sql.NullString `db:"payment_proof" json:"payment_proof,omitempty"`
	Street         string         `db:"street" json:"street"`
	City           string         `db:"city" json:"city"`
	Zip            string         `db:"zip" json:"zip"`
	ContactInfo    string         `db:"contact_info" json:"contact_info"`
	TrackingNo     sql.NullString `db:"tracking_no" json:"tracking_no,omitempty"`
	ShippedAt      sql.NullTime   `db:"shipped_at" json:"shipped_at,omitempty"`
	IdempotencyKey string         `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// OrderItem is one line of an order. UnitPrice is snapshotted at placement
// time and never recomputed from the live product.
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   int64  `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	SKU       string `db:"sku" json:"sku"`
	Name      string `db:"name" json:"name"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Category  string `db:"category" json:"category"`
}

// StatusHistoryEntry records one accepted transition, oldest first. The first
// entry is written at order creation.
type StatusHistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	Status    string    `db:"status" json:"status"`
	UpdatedBy int64     `db:"updated_by" json:"updated_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StockCategory is the per-category ledger head: current level plus metadata.
type StockCategory struct {
	Name      string    `db:"name" json:"name"`
	Level     int       `db:"level" json:"level"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StockLogEntry is one append-only ledger record. QuantityChange is signed;
// a category's level always equals the cumulative sum of its log.
type StockLogEntry struct {
	ID             int64         `db:"id" json:"id"`
	Category       string        `db:"category" json:"category"`
	ActionType     string        `db:"action_type" json:"action_type"`
	QuantityChange int           `db:"quantity_change" json:"quantity_change"`
	ReferenceID    sql.NullInt64 `db:"reference_id" json:"reference_id,omitempty"`
	UpdatedBy      int64         `db:"updated_by" json:"updated_by"`
	Reason         string        `db:"reason" json:"reason"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// Notification is the projection the realtime dispatch layer reads from.
type Notification struct {
	ID          int64     `db:"id" json:"id"`
	RecipientID int64     `db:"recipient_id" json:"recipient_id"`
	OrderID     int64     `db:"order_id" json:"order_id"`
	EventType   string    `db:"event_type" json:"event_type"`
	Message     string    `db:"message" json:"message"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Order statuses
const (
	OrderStatusAwaitingPayment     = "AWAITING_PAYMENT"
	OrderStatusPendingVerification = "PENDING_VERIFICATION"
	OrderStatusProcessing          = "PROCESSING"
	OrderStatusShipped             = "SHIPPED"
	OrderStatusDelivered           = "DELIVERED"
	OrderStatusCancelled           = "CANCELLED"
)

// Payment methods
const (
	PaymentMethodQRCode       = "QR_CODE"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
)

// Ledger action types
const (
	ActionDeduction   = "DEDUCTION"
	ActionRestoration = "RESTORATION"
	ActionManualIn    = "MANUAL_IN"
	ActionManualOut   = "MANUAL_OUT"
)

// Actor roles, verified upstream by the auth layer.
const (
	RoleAdmin    = "admin"
	RoleReseller = "reseller"
)

// Categories is the fixed set of inventory buckets products share.
var Categories = []string{"saya", "barong", "fabrics", "accessories"}

// ValidCategory reports whether name is one of the known inventory buckets.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	return m == PaymentMethodQRCode || m == PaymentMethodBankTransfer
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
