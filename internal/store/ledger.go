package store

import (
	"context"
	"database/sql"
	"fmt"

	"reseller-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// LedgerAdjustment is one signed mutation of a category level plus the log
// entry that records it. Every stock change in the system is expressed as one
// of these and applied by adjustStockTx.
type LedgerAdjustment struct {
	Category    string
	Delta       int
	ActionType  string
	ReferenceID sql.NullInt64
	UpdatedBy   int64
	Reason      string
}

// adjustStockTx applies one ledger adjustment inside tx: lazily creates the
// category row, applies the conditional level update, and appends the log
// entry. Returns the new level, or ErrInsufficientStock leaving tx poisoned
// for rollback.
func adjustStockTx(ctx context.Context, tx *sqlx.Tx, adj LedgerAdjustment) (int, error) {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO stock_categories (name, level) VALUES ($1, 0) ON CONFLICT (name) DO NOTHING",
		adj.Category)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure category %s: %w", adj.Category, err)
	}

	var newLevel int
	err = tx.GetContext(ctx, &newLevel, `
		UPDATE stock_categories
		SET level = level + $1, updated_at = NOW()
		WHERE name = $2 AND level + $1 >= 0
		RETURNING level`,
		adj.Delta, adj.Category)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("category %s delta %d: %w", adj.Category, adj.Delta, ErrInsufficientStock)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to adjust category %s: %w", adj.Category, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_logs (category, action_type, quantity_change, reference_id, updated_by, reason)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		adj.Category, adj.ActionType, adj.Delta, adj.ReferenceID, adj.UpdatedBy, adj.Reason)
	if err != nil {
		return 0, fmt.Errorf("failed to append stock log for %s: %w", adj.Category, err)
	}

	return newLevel, nil
}

// AdjustStock applies a single standalone ledger adjustment (manual admin
// action or product-edit sync) in its own transaction and returns the new
// level. On ErrInsufficientStock nothing is persisted, log entry included.
func (s *Store) AdjustStock(ctx context.Context, adj LedgerAdjustment) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	newLevel, err := adjustStockTx(ctx, tx, adj)
	if err != nil {
		return 0, err
	}

	return newLevel, tx.Commit()
}

// GetCategory retrieves one ledger head row
func (s *Store) GetCategory(ctx context.Context, name string) (*models.StockCategory, error) {
	var cat models.StockCategory
	err := s.db.GetContext(ctx, &cat, "SELECT * FROM stock_categories WHERE name = $1", name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("category %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

// ListCategories retrieves all ledger head rows
func (s *Store) ListCategories(ctx context.Context) ([]models.StockCategory, error) {
	var cats []models.StockCategory
	err := s.db.SelectContext(ctx, &cats, "SELECT * FROM stock_categories ORDER BY name")
	return cats, err
}

// QueryLowStock returns categories at or below threshold
func (s *Store) QueryLowStock(ctx context.Context, threshold int) ([]models.StockCategory, error) {
	var cats []models.StockCategory
	err := s.db.SelectContext(ctx, &cats,
		"SELECT * FROM stock_categories WHERE level <= $1 ORDER BY level, name", threshold)
	return cats, err
}

// GetStockLogs retrieves a category's log, oldest first
func (s *Store) GetStockLogs(ctx context.Context, category string) ([]models.StockLogEntry, error) {
	var logs []models.StockLogEntry
	err := s.db.SelectContext(ctx, &logs,
		"SELECT * FROM stock_logs WHERE category = $1 ORDER BY id", category)
	return logs, err
}
