package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reseller-service/internal/broker"
	"reseller-service/internal/models"
	"reseller-service/internal/redisclient"
	"reseller-service/internal/store"
	"reseller-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockService owns the category ledger. Every mutation, whether driven by an
// order transition, an admin action, or a product-edit sync, is expressed as a
// store.LedgerAdjustment and goes through the store's single adjust path.
type StockService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	lowThreshold   int
}

// NewStockService creates a new stock service
func NewStockService(
	st *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	lowThreshold int,
) *StockService {
	if lowThreshold <= 0 {
		lowThreshold = 10
	}
	return &StockService{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		lowThreshold:   lowThreshold,
	}
}

// GroupItemsByCategory sums line-item quantities per inventory category.
func GroupItemsByCategory(items []models.OrderItem) map[string]int {
	sums := make(map[string]int)
	for _, item := range items {
		sums[item.Category] += item.Quantity
	}
	return sums
}

// OrderAdjustments builds the per-category ledger adjustments for an order's
// items: one DEDUCTION (negative) or RESTORATION (positive) per category. An
// item category outside the ledger set is an error; dropping it would make
// the deduction vanish without a trace.
func OrderAdjustments(items []models.OrderItem, orderID, actorID int64, restore bool) ([]store.LedgerAdjustment, error) {
	sums := GroupItemsByCategory(items)
	for category := range sums {
		if !models.ValidCategory(category) {
			return nil, fmt.Errorf("order #%d has item category %q outside the ledger set", orderID, category)
		}
	}

	adjustments := make([]store.LedgerAdjustment, 0, len(sums))
	for _, category := range models.Categories {
		qty, ok := sums[category]
		if !ok {
			continue
		}

		adj := store.LedgerAdjustment{
			Category:    category,
			Delta:       -qty,
			ActionType:  models.ActionDeduction,
			ReferenceID: sql.NullInt64{Int64: orderID, Valid: true},
			UpdatedBy:   actorID,
			Reason:      fmt.Sprintf("order #%d entered processing", orderID),
		}
		if restore {
			adj.Delta = qty
			adj.ActionType = models.ActionRestoration
			adj.Reason = fmt.Sprintf("order #%d cancelled during processing", orderID)
		}
		adjustments = append(adjustments, adj)
	}
	return adjustments, nil
}

// ManualAdjust applies a direct admin mutation. Positive quantities record
// MANUAL_IN, negative MANUAL_OUT; zero is rejected.
func (ss *StockService) ManualAdjust(ctx context.Context, category string, signedQuantity int, reason string, actorID int64) (int, error) {
	ctx, span := util.StartSpan(ctx, "StockService.ManualAdjust")
	defer span.End()

	if !models.ValidCategory(category) {
		return 0, newValidationError("category", fmt.Sprintf("unknown category %q", category))
	}
	if signedQuantity == 0 {
		return 0, newValidationError("quantity", "must be non-zero")
	}
	if reason == "" {
		return 0, newValidationError("reason", "must not be empty")
	}

	actionType := models.ActionManualIn
	if signedQuantity < 0 {
		actionType = models.ActionManualOut
	}

	adj := store.LedgerAdjustment{
		Category:   category,
		Delta:      signedQuantity,
		ActionType: actionType,
		UpdatedBy:  actorID,
		Reason:     reason,
	}

	newLevel, err := ss.store.AdjustStock(ctx, adj)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			util.StockAdjustRejected.WithLabelValues(actionType).Inc()
			return 0, fmt.Errorf("category %s: %w", category, ErrInsufficientStock)
		}
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	ss.StockCommitted(ctx, adj, newLevel)
	return newLevel, nil
}

// StockCommitted runs the post-commit duties of a ledger mutation: refresh
// the read cache, update the gauge, and publish the events. Failures here are
// logged only; the mutation is already durable.
func (ss *StockService) StockCommitted(ctx context.Context, adj store.LedgerAdjustment, newLevel int) {
	util.StockLevelGauge.WithLabelValues(adj.Category).Set(float64(newLevel))

	if err := ss.redis.RefreshLevel(ctx, adj.Category, newLevel, ss.lowThreshold); err != nil {
		ss.logger.Warn("Failed to refresh cached stock level",
			zap.String("category", adj.Category),
			zap.Error(err))
	}

	event := &models.StockAdjustedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockAdjusted,
			Timestamp: time.Now(),
		},
		Category:       adj.Category,
		ActionType:     adj.ActionType,
		QuantityChange: adj.Delta,
		NewLevel:       newLevel,
		ReferenceID:    adj.ReferenceID.Int64,
		UpdatedBy:      adj.UpdatedBy,
	}
	if err := ss.eventPublisher.PublishStockAdjusted(ctx, event); err != nil {
		ss.logger.Error("Failed to publish StockAdjusted event", zap.Error(err))
	}

	if newLevel <= ss.lowThreshold {
		lowEvent := &models.LowStockEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeLowStock,
				Timestamp: time.Now(),
			},
			Category:  adj.Category,
			Level:     newLevel,
			Threshold: ss.lowThreshold,
		}
		if err := ss.eventPublisher.PublishLowStock(ctx, lowEvent); err != nil {
			ss.logger.Error("Failed to publish LowStock event", zap.Error(err))
		}
	}
}

// CategoryLevel reads one category level, cache first, database on miss.
func (ss *StockService) CategoryLevel(ctx context.Context, category string) (int, error) {
	if !models.ValidCategory(category) {
		return 0, newValidationError("category", fmt.Sprintf("unknown category %q", category))
	}

	level, hit, err := ss.redis.GetLevel(ctx, category)
	if err != nil {
		ss.logger.Warn("Stock level cache read failed", zap.Error(err))
	}
	if hit {
		return level, nil
	}

	cat, err := ss.store.GetCategory(ctx, category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Category rows are created lazily; absent means no mutation yet.
			return 0, nil
		}
		return 0, err
	}

	if err := ss.redis.RefreshLevel(ctx, category, cat.Level, ss.lowThreshold); err != nil {
		ss.logger.Warn("Failed to warm stock level cache", zap.Error(err))
	}
	return cat.Level, nil
}

// Levels retrieves all ledger head rows
func (ss *StockService) Levels(ctx context.Context) ([]models.StockCategory, error) {
	return ss.store.ListCategories(ctx)
}

// QueryLow returns categories at or below threshold; threshold <= 0 selects
// the configured default. The cached low-stock set answers default-threshold
// queries; anything else goes to the database.
func (ss *StockService) QueryLow(ctx context.Context, threshold int) ([]models.StockCategory, error) {
	if threshold <= 0 {
		threshold = ss.lowThreshold

		names, err := ss.redis.GetLowStockCategories(ctx)
		if err == nil && len(names) > 0 {
			cats := make([]models.StockCategory, 0, len(names))
			for _, name := range names {
				cat, err := ss.store.GetCategory(ctx, name)
				if err != nil {
					return ss.store.QueryLowStock(ctx, threshold)
				}
				cats = append(cats, *cat)
			}
			return cats, nil
		}
	}

	return ss.store.QueryLowStock(ctx, threshold)
}

// Logs retrieves a category's ledger log, oldest first.
func (ss *StockService) Logs(ctx context.Context, category string) ([]models.StockLogEntry, error) {
	if !models.ValidCategory(category) {
		return nil, newValidationError("category", fmt.Sprintf("unknown category %q", category))
	}
	return ss.store.GetStockLogs(ctx, category)
}
