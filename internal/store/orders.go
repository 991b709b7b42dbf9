package store

import (
	"context"
	"database/sql"
	"fmt"

	"reseller-service/internal/models"
)

// Product reservation effects applied alongside a status transition.
const (
	ProductEffectCommit  = "commit"  // reserved -= qty, units leave on-hand stock
	ProductEffectRelease = "release" // reserved -= qty, back to availability
	ProductEffectRestore = "restore" // available += qty after a committed deduction
)

// ProductEffect is one per-product stock mutation bundled into a transition.
type ProductEffect struct {
	ProductID int64
	Quantity  int
	Kind      string
}

// CreateOrder inserts an order, its items, the first history entry, and the
// product reservations in one transaction. If any product cannot cover its
// quantity the whole order is rolled back and ErrInsufficientStock returned.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (owner_id, status, subtotal_price, shipping_fee, total_price,
		                    payment_method, street, city, zip, contact_info, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	err = tx.GetContext(ctx, order, query,
		order.OwnerID, order.Status, order.SubtotalPrice, order.ShippingFee, order.TotalPrice,
		order.PaymentMethod, order.Street, order.City, order.Zip, order.ContactInfo, order.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		item := &items[i]
		item.OrderID = order.ID

		err = tx.GetContext(ctx, &item.ID, `
			INSERT INTO order_items (order_id, product_id, sku, name, quantity, unit_price, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			item.OrderID, item.ProductID, item.SKU, item.Name, item.Quantity, item.UnitPrice, item.Category)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		if err := reserveProductTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO status_history (order_id, status, updated_by) VALUES ($1, $2, $3)",
		order.ID, order.Status, order.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}

	return tx.Commit()
}

// TransitionParams carries everything one status transition must persist
// atomically: the status move itself, its history entry, any ledger
// adjustments, any product reservation effects, and optional shipping fields.
type TransitionParams struct {
	OrderID     int64
	FromStatus  string
	ToStatus    string
	ActorID     int64
	TrackingNo  string
	ProofURL    string
	Adjustments []LedgerAdjustment
	Effects     []ProductEffect
}

// TransitionOrder commits a validated transition. The UPDATE is guarded on
// the expected current status so a concurrent transition loses with
// ErrStatusConflict instead of silently double-applying side effects. Ledger
// adjustments, product effects, and the history entry commit with the status
// or not at all. Returns the new level per adjusted category.
func (s *Store) TransitionOrder(ctx context.Context, p TransitionParams) (map[string]int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := "UPDATE orders SET status = $1, updated_at = NOW()"
	args := []interface{}{p.ToStatus}
	if p.TrackingNo != "" {
		query += fmt.Sprintf(", tracking_no = $%d, shipped_at = NOW()", len(args)+1)
		args = append(args, p.TrackingNo)
	}
	if p.ProofURL != "" {
		query += fmt.Sprintf(", payment_proof = $%d", len(args)+1)
		args = append(args, p.ProofURL)
	}
	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", len(args)+1, len(args)+2)
	args = append(args, p.OrderID, p.FromStatus)

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("order %d not at %s: %w", p.OrderID, p.FromStatus, ErrStatusConflict)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO status_history (order_id, status, updated_by) VALUES ($1, $2, $3)",
		p.OrderID, p.ToStatus, p.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert status history: %w", err)
	}

	levels := make(map[string]int, len(p.Adjustments))
	for _, adj := range p.Adjustments {
		newLevel, err := adjustStockTx(ctx, tx, adj)
		if err != nil {
			return nil, err
		}
		levels[adj.Category] = newLevel
	}

	for _, eff := range p.Effects {
		switch eff.Kind {
		case ProductEffectCommit:
			err = commitReservationTx(ctx, tx, eff.ProductID, eff.Quantity)
		case ProductEffectRelease:
			err = releaseReservationTx(ctx, tx, eff.ProductID, eff.Quantity)
		case ProductEffectRestore:
			err = restoreProductTx(ctx, tx, eff.ProductID, eff.Quantity)
		default:
			err = fmt.Errorf("unknown product effect %q", eff.Kind)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return levels, nil
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves all items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetStatusHistory retrieves an order's history, oldest first
func (s *Store) GetStatusHistory(ctx context.Context, orderID int64) ([]models.StatusHistoryEntry, error) {
	var history []models.StatusHistoryEntry
	err := s.db.SelectContext(ctx, &history,
		"SELECT * FROM status_history WHERE order_id = $1 ORDER BY id", orderID)
	return history, err
}

// GetOrdersByOwner retrieves orders for a reseller
func (s *Store) GetOrdersByOwner(ctx context.Context, ownerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE owner_id = $1 ORDER BY created_at DESC", ownerID)
	return orders, err
}

// ListOrders retrieves all orders, newest first
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, "SELECT * FROM orders ORDER BY created_at DESC")
	return orders, err
}

// SalesRollup is one row of the sales report: order volume per status.
type SalesRollup struct {
	Status     string `db:"status" json:"status"`
	OrderCount int    `db:"order_count" json:"order_count"`
	Revenue    int64  `db:"revenue" json:"revenue"`
}

// GetSalesRollup aggregates committed orders by status
func (s *Store) GetSalesRollup(ctx context.Context) ([]SalesRollup, error) {
	var rollup []SalesRollup
	err := s.db.SelectContext(ctx, &rollup, `
		SELECT status, COUNT(*) AS order_count, COALESCE(SUM(total_price), 0) AS revenue
		FROM orders
		GROUP BY status
		ORDER BY status`)
	return rollup, err
}
