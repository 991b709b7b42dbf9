package service

import (
	"context"
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

// OrderService orchestrates the order lifecycle: placement with price
// snapshot and stock reservation, and status transitions with their ledger
// side effects.
type OrderService struct {
	store          *store.Store
	redis          *redisclient.Client
	eventPublisher *broker.EventPublisher
	stockService   *StockService
	logger         *zap.Logger
	shippingFee    int64
}

// NewOrderService creates a new order service
func NewOrderService(
	st *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	stockService *StockService,
	shippingFee int64,
) *OrderService {
	return &OrderService{
		store:          st,
		redis:          redis,
		eventPublisher: eventPublisher,
		stockService:   stockService,
		logger:         util.GetLogger(),
		shippingFee:    shippingFee,
	}
}

// CreateOrderRequest represents a checkout request
type CreateOrderRequest struct {
	Items          []OrderItemRequest `json:"items" binding:"required,min=1"`
	PaymentMethod  string             `json:"payment_method" binding:"required"`
	Street         string             `json:"street" binding:"required"`
	City           string             `json:"city" binding:"required"`
	Zip            string             `json:"zip" binding:"required"`
	ContactInfo    string             `json:"contact_info" binding:"required"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
}

// OrderItemRequest represents an item in a checkout request
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

func validateCreateRequest(ownerID int64, req *CreateOrderRequest) error {
	if ownerID <= 0 {
		return newValidationError("owner_id", "must be positive")
	}
	if len(req.Items) == 0 {
		return newValidationError("items", "must contain at least one line item")
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return newValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
	}
	if !models.ValidPaymentMethod(req.PaymentMethod) {
		return newValidationError("payment_method", fmt.Sprintf("unknown method %q", req.PaymentMethod))
	}
	if req.Street == "" || req.City == "" || req.Zip == "" {
		return newValidationError("shipping_address", "street, city, and zip are required")
	}
	return nil
}

// checkIdempotentReplay decides whether an existing order matching a
// client-supplied idempotency key may be returned. Keys are free-form, so a
// match only replays for the account that placed the original order; anyone
// else probing with a foreign key gets a validation error, never the order.
func checkIdempotentReplay(existing *models.Order, ownerID int64) error {
	if existing.OwnerID != ownerID {
		return newValidationError("idempotency_key", "already used by another account")
	}
	return nil
}

// CreateOrder places an order: validates the request, snapshots unit prices,
// and persists the order together with the stock reservation in one
// transaction. Two checkouts racing for the last unit cannot both succeed.
func (s *OrderService) CreateOrder(ctx context.Context, ownerID int64, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateCreateRequest(ownerID, req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		if err := checkIdempotentReplay(existing, ownerID); err != nil {
			util.OrdersFailedTotal.WithLabelValues("validation").Inc()
			return nil, err
		}
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Int64("order_id", existing.ID))
		return existing, nil
	}

	productIDs := make([]int64, len(req.Items))
	for i, item := range req.Items {
		productIDs[i] = item.ProductID
	}

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	var subtotal int64
	for _, reqItem := range req.Items {
		product, ok := productMap[reqItem.ProductID]
		if !ok || !product.Published || product.StockQuantity < reqItem.Quantity {
			util.OrdersFailedTotal.WithLabelValues("out_of_stock").Inc()
			return nil, fmt.Errorf("product %d: %w", reqItem.ProductID, ErrOutOfStock)
		}

		unitPrice := product.UnitPrice()
		subtotal += unitPrice * int64(reqItem.Quantity)
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Quantity:  reqItem.Quantity,
			UnitPrice: unitPrice,
			Category:  product.Category,
		})
	}

	total := subtotal + s.shippingFee
	if total < 1 {
		return nil, newValidationError("total_price", "must be at least 0.01")
	}

	order := &models.Order{
		OwnerID:        ownerID,
		Status:         models.OrderStatusAwaitingPayment,
		SubtotalPrice:  subtotal,
		ShippingFee:    s.shippingFee,
		TotalPrice:     total,
		PaymentMethod:  req.PaymentMethod,
		Street:         req.Street,
		City:           req.City,
		Zip:            req.Zip,
		ContactInfo:    req.ContactInfo,
		IdempotencyKey: req.IdempotencyKey,
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			// The upfront check passed but a concurrent checkout won the race.
			util.OrdersFailedTotal.WithLabelValues("out_of_stock").Inc()
			return nil, fmt.Errorf("stock claimed by a concurrent checkout: %w", ErrOutOfStock)
		}
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.redis.SetIdempotencyKey(ctx, req.IdempotencyKey, order.ID, 24*time.Hour); err != nil {
		s.logger.Warn("Failed to cache idempotency key", zap.Error(err))
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.Int64("owner_id", ownerID),
		zap.Int64("total_price", order.TotalPrice))

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: item.ProductID,
			Category:  item.Category,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		OwnerID:    order.OwnerID,
		TotalPrice: order.TotalPrice,
		Items:      eventItems,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return order, nil
}

// UpdateStatus performs a generic admin transition per the transition table,
// including ledger deduction on entering PROCESSING and restoration on
// cancellation from PROCESSING. Target SHIPPED requires a tracking number.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, targetStatus string, actorID int64, trackingNo string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	target := Status(targetStatus)
	if !ValidStatus(target) {
		return nil, newValidationError("status", fmt.Sprintf("unknown status %q", targetStatus))
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if RequiresTracking(target) && trackingNo == "" {
		util.OrderTransitionsRejected.WithLabelValues("missing_tracking").Inc()
		return nil, newValidationError("tracking_no", "required when shipping an order")
	}

	return s.transition(ctx, order, target, actorID, trackingNo, "")
}

// UploadPaymentProof records the reseller's proof-of-payment reference and
// moves the order to PENDING_VERIFICATION. Only the owning reseller may call
// it, and only while the order awaits payment.
func (s *OrderService) UploadPaymentProof(ctx context.Context, orderID, ownerID int64, proofURL string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UploadPaymentProof")
	defer span.End()

	if proofURL == "" {
		return nil, newValidationError("proof_url", "must not be empty")
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != ownerID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrForbidden)
	}
	if order.Status != models.OrderStatusAwaitingPayment {
		util.OrderTransitionsRejected.WithLabelValues("invalid_state").Inc()
		return nil, fmt.Errorf("cannot upload proof at %s: %w", order.Status, ErrInvalidState)
	}

	return s.transition(ctx, order, StatusPendingVerification, ownerID, "", proofURL)
}

// CancelByOwner lets the owning reseller cancel before processing starts.
// Once stock has been deducted only an admin transition can cancel.
func (s *OrderService) CancelByOwner(ctx context.Context, orderID, ownerID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelByOwner")
	defer span.End()

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != ownerID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrForbidden)
	}
	if order.Status != models.OrderStatusAwaitingPayment && order.Status != models.OrderStatusPendingVerification {
		util.OrderTransitionsRejected.WithLabelValues("invalid_state").Inc()
		return nil, fmt.Errorf("cannot cancel at %s: %w", order.Status, ErrInvalidState)
	}

	return s.transition(ctx, order, StatusCancelled, ownerID, "", "")
}

// ConfirmDelivered lets the owning reseller confirm receipt of a shipped
// order. Admins use the generic UpdateStatus transition instead.
func (s *OrderService) ConfirmDelivered(ctx context.Context, orderID, ownerID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ConfirmDelivered")
	defer span.End()

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != ownerID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrForbidden)
	}
	if order.Status != models.OrderStatusShipped {
		util.OrderTransitionsRejected.WithLabelValues("invalid_state").Inc()
		return nil, fmt.Errorf("cannot confirm delivery at %s: %w", order.Status, ErrInvalidState)
	}

	return s.transition(ctx, order, StatusDelivered, ownerID, "", "")
}

// transition validates the move against the table, computes the ledger and
// reservation side effects, commits everything in one transaction, and
// publishes events after commit.
func (s *OrderService) transition(ctx context.Context, order *models.Order, target Status, actorID int64, trackingNo, proofURL string) (*models.Order, error) {
	from := Status(order.Status)
	if !CanTransition(from, target) {
		util.OrderTransitionsRejected.WithLabelValues("invalid_state").Inc()
		return nil, fmt.Errorf("cannot transition %s to %s: %w", from, target, ErrInvalidState)
	}

	start := time.Now()
	defer func() {
		util.TransitionLatency.Observe(time.Since(start).Seconds())
	}()

	params := store.TransitionParams{
		OrderID:    order.ID,
		FromStatus: string(from),
		ToStatus:   string(target),
		ActorID:    actorID,
		TrackingNo: trackingNo,
		ProofURL:   proofURL,
	}

	var items []models.OrderItem
	needsItems := DeductsStock(from, target) || RestoresStock(from, target) || target == StatusCancelled
	if needsItems {
		var err error
		items, err = s.store.GetOrderItems(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load order items: %w", err)
		}
	}

	switch {
	case DeductsStock(from, target):
		adjs, err := OrderAdjustments(items, order.ID, actorID, false)
		if err != nil {
			return nil, err
		}
		params.Adjustments = adjs
		for _, item := range items {
			params.Effects = append(params.Effects, store.ProductEffect{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Kind:      store.ProductEffectCommit,
			})
		}

	case RestoresStock(from, target):
		adjs, err := OrderAdjustments(items, order.ID, actorID, true)
		if err != nil {
			return nil, err
		}
		params.Adjustments = adjs
		for _, item := range items {
			params.Effects = append(params.Effects, store.ProductEffect{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Kind:      store.ProductEffectRestore,
			})
		}

	case target == StatusCancelled:
		// Cancelled before any deduction: reservations go back to availability,
		// no ledger entry.
		for _, item := range items {
			params.Effects = append(params.Effects, store.ProductEffect{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Kind:      store.ProductEffectRelease,
			})
		}
	}

	levels, err := s.store.TransitionOrder(ctx, params)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			util.OrderTransitionsRejected.WithLabelValues("insufficient_stock").Inc()
			return nil, fmt.Errorf("transition %s to %s: %w", from, target, ErrInsufficientStock)
		case errors.Is(err, store.ErrStatusConflict):
			util.OrderTransitionsRejected.WithLabelValues("conflict").Inc()
			return nil, fmt.Errorf("order %d changed concurrently: %w", order.ID, ErrInvalidState)
		default:
			return nil, fmt.Errorf("failed to transition order: %w", err)
		}
	}

	util.OrderTransitionsTotal.WithLabelValues(string(target)).Inc()
	if DeductsStock(from, target) {
		util.StockDeductionsTotal.Inc()
	}
	if RestoresStock(from, target) {
		util.StockRestorationsTotal.Inc()
	}

	for _, adj := range params.Adjustments {
		s.stockService.StockCommitted(ctx, adj, levels[adj.Category])
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		OwnerID:    order.OwnerID,
		FromStatus: string(from),
		ToStatus:   string(target),
		UpdatedBy:  actorID,
		TrackingNo: trackingNo,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	s.logger.Info("Order transitioned",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.Int64("actor_id", actorID))

	return s.getOrder(ctx, order.ID)
}

func (s *OrderService) getOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
		}
		return nil, err
	}
	return order, nil
}

// OrderDetail bundles an order with its items and history for reads.
type OrderDetail struct {
	Order   *models.Order               `json:"order"`
	Items   []models.OrderItem          `json:"items"`
	History []models.StatusHistoryEntry `json:"history"`
}

// GetOrder returns an order with items and history. Resellers may only read
// their own orders.
func (s *OrderService) GetOrder(ctx context.Context, orderID, actorID int64, role string) (*OrderDetail, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin && order.OwnerID != actorID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrForbidden)
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.GetStatusHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &OrderDetail{Order: order, Items: items, History: history}, nil
}

// ListOrders returns all orders for admins, own orders for resellers.
func (s *OrderService) ListOrders(ctx context.Context, actorID int64, role string) ([]models.Order, error) {
	if role == models.RoleAdmin {
		return s.store.ListOrders(ctx)
	}
	return s.store.GetOrdersByOwner(ctx, actorID)
}

// SalesReport aggregates committed orders by status.
func (s *OrderService) SalesReport(ctx context.Context) ([]store.SalesRollup, error) {
	return s.store.GetSalesRollup(ctx)
}
