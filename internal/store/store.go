package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reseller-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Storage-level failures the service layer maps onto its taxonomy.
var (
	ErrNotFound          = errors.New("store: row not found")
	ErrInsufficientStock = errors.New("store: insufficient stock")
	ErrStatusConflict    = errors.New("store: order status changed concurrently")
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// ListProducts retrieves all products
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// CreateProduct inserts a new product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (sku, name, category, base_price, discount_price, stock_quantity, reserved, published)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, p, query,
		p.SKU, p.Name, p.Category, p.BasePrice, p.DiscountPrice, p.StockQuantity, p.Published)
}

// UpdateProduct updates mutable product fields
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, category = $2, base_price = $3, discount_price = $4,
		    stock_quantity = $5, published = $6, updated_at = NOW()
		WHERE id = $7`,
		p.Name, p.Category, p.BasePrice, p.DiscountPrice, p.StockQuantity, p.Published, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// reserveProductTx moves quantity from available to reserved for one product.
// The conditional WHERE is what keeps two concurrent checkouts from both
// claiming the last unit.
func reserveProductTx(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $1, reserved = reserved + $1, updated_at = NOW()
		WHERE id = $2 AND published AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to reserve product %d: %w", productID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
	}
	return nil
}

// commitReservationTx removes reserved units once the order enters fulfillment.
func commitReservationTx(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET reserved = reserved - $1, updated_at = NOW()
		WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to commit reservation for product %d: %w", productID, err)
	}
	return nil
}

// releaseReservationTx returns reserved units to availability on cancellation.
func releaseReservationTx(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, reserved = reserved - $1, updated_at = NOW()
		WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to release reservation for product %d: %w", productID, err)
	}
	return nil
}

// restoreProductTx returns already-deducted units to availability (cancellation
// after processing started).
func restoreProductTx(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("failed to restore stock for product %d: %w", productID, err)
	}
	return nil
}

// CreateNotification records one notification row for the dispatch layer.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, order_id, event_type, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, n, query, n.RecipientID, n.OrderID, n.EventType, n.Message)
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
