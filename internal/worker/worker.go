package worker

import (
	"context"
	"errors"
	"fmt"

	"reseller-service/internal/broker"
	"reseller-service/internal/models"
	"reseller-service/internal/service"
	"reseller-service/internal/store"
	"reseller-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker projects order events into notification rows for the
// realtime dispatch layer to deliver.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, st *store.Store) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    st,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(w.handleOrderPlaced)
	eventHandler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	w.eventHandler = eventHandler

	return w
}

func (w *NotificationWorker) handleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	n := &models.Notification{
		RecipientID: event.OwnerID,
		OrderID:     event.OrderID,
		EventType:   event.EventType,
		Message:     fmt.Sprintf("Order #%d placed, awaiting payment", event.OrderID),
	}
	if err := w.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

func (w *NotificationWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	msg := fmt.Sprintf("Order #%d is now %s", event.OrderID, event.ToStatus)
	if event.TrackingNo != "" {
		msg = fmt.Sprintf("Order #%d shipped, tracking %s", event.OrderID, event.TrackingNo)
	}

	n := &models.Notification{
		RecipientID: event.OwnerID,
		OrderID:     event.OrderID,
		EventType:   event.EventType,
		Message:     msg,
	}
	if err := w.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

// ReconcileWorker retries product-to-ledger syncs that failed after a
// successful product write. Each retry goes back through ManualAdjust so
// preconditions are re-validated rather than the write half being reapplied.
type ReconcileWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	stockService *service.StockService
	logger       *zap.Logger
}

// NewReconcileWorker creates a new reconciliation worker
func NewReconcileWorker(consumer *broker.Consumer, st *store.Store, stockService *service.StockService) *ReconcileWorker {
	w := &ReconcileWorker{
		consumer:     consumer,
		store:        st,
		stockService: stockService,
		logger:       util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockSyncFailed(w.handleStockSyncFailed)
	w.eventHandler = eventHandler

	return w
}

func (w *ReconcileWorker) handleStockSyncFailed(ctx context.Context, event *models.StockSyncFailedEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	reason := fmt.Sprintf("reconciliation: %s", event.Reason)
	_, err = w.stockService.ManualAdjust(ctx, event.Category, event.Delta, reason, event.ActorID)
	switch {
	case err == nil:
		w.logger.Info("Reconciled stock sync",
			zap.Int64("product_id", event.ProductID),
			zap.String("category", event.Category),
			zap.Int("delta", event.Delta))

	case errors.Is(err, service.ErrInsufficientStock):
		// The delta still cannot apply; redelivering the same event cannot
		// help. Mark it handled and leave the drift visible in the logs.
		w.logger.Error("Reconciliation rejected, ledger and product stock remain drifted",
			zap.Int64("product_id", event.ProductID),
			zap.String("category", event.Category),
			zap.Int("delta", event.Delta))

	default:
		return fmt.Errorf("reconciliation failed for category %s: %w", event.Category, err)
	}

	return w.store.MarkEventProcessed(ctx, event.EventID, event.EventType)
}

// Start starts the worker
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock reconciliation worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReconcileWorker) Stop() error {
	w.logger.Info("Stopping stock reconciliation worker")
	return w.consumer.Close()
}
