package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reseller-service/internal/broker"
	"reseller-service/internal/models"
	"reseller-service/internal/store"
	"reseller-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService manages the catalog slice the order core depends on and
// keeps the category ledger in step with product stock edits. The ledger sync
// is best-effort: a failed sync never rolls back the product write, it is
// surfaced as a SyncWarning and queued for reconciliation.
type ProductService struct {
	store          *store.Store
	stockService   *StockService
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(st *store.Store, stockService *StockService, eventPublisher *broker.EventPublisher) *ProductService {
	return &ProductService{
		store:          st,
		stockService:   stockService,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// ProductRequest carries create/update fields for a product
type ProductRequest struct {
	SKU           string `json:"sku" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Category      string `json:"category" binding:"required"`
	BasePrice     int64  `json:"base_price" binding:"required"`
	DiscountPrice int64  `json:"discount_price"`
	StockQuantity int    `json:"stock_quantity"`
	Published     bool   `json:"published"`
}

func validateProductRequest(req *ProductRequest) error {
	if req.SKU == "" {
		return newValidationError("sku", "must not be empty")
	}
	if req.Name == "" {
		return newValidationError("name", "must not be empty")
	}
	if !models.ValidCategory(req.Category) {
		return newValidationError("category", fmt.Sprintf("unknown category %q", req.Category))
	}
	if req.BasePrice < 1 {
		return newValidationError("base_price", "must be at least 0.01")
	}
	if req.DiscountPrice < 0 {
		return newValidationError("discount_price", "must not be negative")
	}
	if req.StockQuantity < 0 {
		return newValidationError("stock_quantity", "must not be negative")
	}
	return nil
}

// CreateProduct inserts a product and, when it lists initial stock, adds that
// quantity to the category ledger. Returns a SyncWarning when the product
// committed but the ledger sync failed.
func (ps *ProductService) CreateProduct(ctx context.Context, req *ProductRequest, actorID int64) (*models.Product, *SyncWarning, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.CreateProduct")
	defer span.End()

	if err := validateProductRequest(req); err != nil {
		return nil, nil, err
	}

	product := &models.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		Category:      req.Category,
		BasePrice:     req.BasePrice,
		DiscountPrice: req.DiscountPrice,
		StockQuantity: req.StockQuantity,
		Published:     req.Published,
	}

	if err := ps.store.CreateProduct(ctx, product); err != nil {
		return nil, nil, fmt.Errorf("failed to create product: %w", err)
	}

	ps.logger.Info("Product created",
		zap.Int64("product_id", product.ID),
		zap.String("sku", product.SKU))

	var warning *SyncWarning
	if req.StockQuantity > 0 {
		warning = ps.syncLedger(ctx, product, product.Category, req.StockQuantity,
			fmt.Sprintf("new listing %s", product.SKU), actorID)
	}

	return product, warning, nil
}

// UpdateProduct applies an admin edit. A stock quantity change adjusts the
// category ledger by the delta; a category change moves the full quantity off
// the old category and onto the new one. Both syncs are best-effort.
func (ps *ProductService) UpdateProduct(ctx context.Context, productID int64, req *ProductRequest, actorID int64) (*models.Product, *SyncWarning, error) {
	ctx, span := util.StartSpan(ctx, "ProductService.UpdateProduct")
	defer span.End()

	if err := validateProductRequest(req); err != nil {
		return nil, nil, err
	}

	product, err := ps.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	oldStock := product.StockQuantity
	oldCategory := product.Category
	product.Name = req.Name
	product.Category = req.Category
	product.BasePrice = req.BasePrice
	product.DiscountPrice = req.DiscountPrice
	product.StockQuantity = req.StockQuantity
	product.Published = req.Published

	if err := ps.store.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to update product: %w", err)
	}

	// Each sync op runs on its own; a failed op emits its own reconciliation
	// event, so the ledger never drifts silently. The first warning wins the
	// response.
	var warning *SyncWarning
	for _, op := range editSyncOps(product.SKU, oldCategory, oldStock, req.Category, req.StockQuantity) {
		w := ps.syncLedger(ctx, product, op.category, op.delta, op.reason, actorID)
		if warning == nil {
			warning = w
		}
	}

	return product, warning, nil
}

type ledgerSyncOp struct {
	category string
	delta    int
	reason   string
}

// editSyncOps computes the ledger adjustments a product edit implies. A stock
// change within one category is a single delta; a category change moves the
// old quantity off the old category and the new quantity onto the new one.
func editSyncOps(sku, oldCategory string, oldStock int, newCategory string, newStock int) []ledgerSyncOp {
	if oldCategory != newCategory {
		var ops []ledgerSyncOp
		if oldStock > 0 {
			ops = append(ops, ledgerSyncOp{
				category: oldCategory,
				delta:    -oldStock,
				reason:   fmt.Sprintf("recategorized %s away from %s", sku, oldCategory),
			})
		}
		if newStock > 0 {
			ops = append(ops, ledgerSyncOp{
				category: newCategory,
				delta:    newStock,
				reason:   fmt.Sprintf("recategorized %s into %s", sku, newCategory),
			})
		}
		return ops
	}

	if delta := newStock - oldStock; delta != 0 {
		return []ledgerSyncOp{{category: newCategory, delta: delta, reason: "stock adjustment on product edit"}}
	}
	return nil
}

// syncLedger nudges one category's ledger by delta. On failure the product
// write stands; the failure is logged, counted, and handed to the
// reconciliation worker via a StockSyncFailed event.
func (ps *ProductService) syncLedger(ctx context.Context, product *models.Product, category string, delta int, reason string, actorID int64) *SyncWarning {
	_, err := ps.stockService.ManualAdjust(ctx, category, delta, reason, actorID)
	if err == nil {
		return nil
	}

	util.StockSyncFailuresTotal.Inc()
	ps.logger.Warn("Product stock sync to ledger failed",
		zap.Int64("product_id", product.ID),
		zap.String("category", category),
		zap.Int("delta", delta),
		zap.Error(err))

	event := &models.StockSyncFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeStockSyncFailed,
			Timestamp: time.Now(),
		},
		ProductID: product.ID,
		Category:  category,
		Delta:     delta,
		Reason:    reason,
		ActorID:   actorID,
	}
	if pubErr := ps.eventPublisher.PublishStockSyncFailed(ctx, event); pubErr != nil {
		ps.logger.Error("Failed to publish StockSyncFailed event", zap.Error(pubErr))
	}

	return &SyncWarning{Category: category, Delta: delta, Err: err}
}

// GetProduct retrieves a product by ID
func (ps *ProductService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	product, err := ps.store.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, err
	}
	return product, nil
}

// ListProducts retrieves all products
func (ps *ProductService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return ps.store.ListProducts(ctx)
}
