package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeStockAdjusted      = "STOCK_ADJUSTED"
	EventTypeStockSyncFailed    = "STOCK_SYNC_FAILED"
	EventTypeLowStock           = "LOW_STOCK"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64  `json:"product_id"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderPlacedEvent published when a reseller places an order
type OrderPlacedEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	OwnerID    int64           `json:"owner_id"`
	TotalPrice int64           `json:"total_price"`
	Items      []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published after every accepted transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	OwnerID    int64  `json:"owner_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	UpdatedBy  int64  `json:"updated_by"`
	TrackingNo string `json:"tracking_no,omitempty"`
}

// StockAdjustedEvent published after every committed ledger mutation
type StockAdjustedEvent struct {
	BaseEvent
	Category       string `json:"category"`
	ActionType     string `json:"action_type"`
	QuantityChange int    `json:"quantity_change"`
	NewLevel       int    `json:"new_level"`
	ReferenceID    int64  `json:"reference_id,omitempty"`
	UpdatedBy      int64  `json:"updated_by"`
}

// StockSyncFailedEvent published when a product write succeeded but the
// companion ledger adjustment did not. Consumed by the reconciliation worker.
type StockSyncFailedEvent struct {
	BaseEvent
	ProductID int64  `json:"product_id"`
	Category  string `json:"category"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	ActorID   int64  `json:"actor_id"`
}

// LowStockEvent published when a mutation drops a category to or below the
// configured threshold
type LowStockEvent struct {
	BaseEvent
	Category  string `json:"category"`
	Level     int    `json:"level"`
	Threshold int    `json:"threshold"`
}
