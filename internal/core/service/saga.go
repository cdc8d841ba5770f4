package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/core/domain"
	"github.com/rl1809/oms/internal/port"
)

// SagaOrchestrator coordinates the order-placement saga across the Orders
// and Inventory contexts without a shared transaction. Each handler is one
// local step; compensation replaces rollback. Events are delivered
// at-least-once, so every handler tolerates redelivery: the order state
// machine's transition guards reject re-transitions and the handlers treat
// that as a completed step, not an error.
type SagaOrchestrator struct {
	orders    port.OrderRepository
	inventory *InventoryService
	publisher port.EventPublisher
	logger    *zap.Logger
}

func NewSagaOrchestrator(
	orders port.OrderRepository,
	inventory *InventoryService,
	publisher port.EventPublisher,
	logger *zap.Logger,
) *SagaOrchestrator {
	return &SagaOrchestrator{
		orders:    orders,
		inventory: inventory,
		publisher: publisher,
		logger:    logger,
	}
}

// HandleOrderPlaced runs the stock reservation for a freshly placed order.
// Success is signalled by the StockReserved event the inventory service
// publishes; any reservation failure (missing SKU, insufficient stock,
// retry exhaustion) is converted into a StockReservationFailed event and
// fed back into the saga rather than surfaced as a crash.
func (s *SagaOrchestrator) HandleOrderPlaced(ctx context.Context, ev domain.OrderPlaced) error {
	s.logger.Info("saga: order placed",
		zap.String("order_id", ev.OrderID.String()))

	if err := s.inventory.Reserve(ctx, ev.OrderID, ev.SkuQuantities); err != nil {
		if !isReservationFailure(err) {
			// Anything else (a failed StockReserved publish, infrastructure
			// trouble) may have left the reservation committed. Cancelling
			// now would strand that stock: the failure path never releases.
			// Leave the order PENDING for timeout recovery, which does.
			s.logger.Error("saga: reservation outcome unknown, leaving for timeout recovery",
				zap.String("order_id", ev.OrderID.String()),
				zap.Error(err))
			return err
		}
		s.logger.Warn("saga: stock reservation failed",
			zap.String("order_id", ev.OrderID.String()),
			zap.Error(err))
		failed := domain.NewStockReservationFailed(ev.OrderID, err.Error())
		if pubErr := s.publisher.Publish(ctx, failed); pubErr != nil {
			return fmt.Errorf("publish reservation failure: %w", pubErr)
		}
	}
	return nil
}

// isReservationFailure reports whether err means the reservation itself was
// refused, with no stock held. Only these errors may trigger the cancel
// path; seeing CANCELLED therefore implies no stock is stranded.
func isReservationFailure(err error) bool {
	return errors.Is(err, domain.ErrSkuNotFound) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrInvalidStockLevel) ||
		errors.Is(err, domain.ErrConcurrencyConflict)
}

// HandleStockReserved confirms the order. A missing order or a guard
// rejection is logged and the order is left for timeout recovery; retrying
// inline cannot fix either.
func (s *SagaOrchestrator) HandleStockReserved(ctx context.Context, ev domain.StockReserved) error {
	s.logger.Info("saga: stock reserved",
		zap.String("order_id", ev.OrderID.String()))

	order, err := s.orders.FindByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", ev.OrderID, err)
	}
	if order == nil {
		s.logger.Error("saga: order not found for confirmation",
			zap.String("order_id", ev.OrderID.String()))
		return nil
	}

	if order.Status() == domain.OrderStatusConfirmed {
		// Redelivered event, step already done.
		return nil
	}
	if _, err := order.Confirm(); err != nil {
		s.logger.Warn("saga: cannot confirm order, leaving for timeout recovery",
			zap.String("order_id", ev.OrderID.String()),
			zap.String("status", string(order.Status())),
			zap.Error(err))
		return nil
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save confirmed order %s: %w", ev.OrderID, err)
	}

	s.logger.Info("saga: order confirmed",
		zap.String("order_id", ev.OrderID.String()))
	return nil
}

// HandleStockReservationFailed cancels the order. No inventory release
// happens on this path: the reservation as a whole never succeeded, and any
// per-SKU leftovers of a partial attempt are reclaimed by the explicit
// release use case or the recovery sweep.
func (s *SagaOrchestrator) HandleStockReservationFailed(ctx context.Context, ev domain.StockReservationFailed) error {
	s.logger.Info("saga: stock reservation failed",
		zap.String("order_id", ev.OrderID.String()),
		zap.String("reason", ev.Reason))

	order, err := s.orders.FindByID(ctx, ev.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", ev.OrderID, err)
	}
	if order == nil {
		s.logger.Error("saga: order not found for cancellation",
			zap.String("order_id", ev.OrderID.String()))
		return nil
	}

	res := order.CancelIfNotAlreadyCancelled("stock reservation failed: " + ev.Reason)
	if res.Event == nil {
		// Already terminal, nothing to do.
		return nil
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save cancelled order %s: %w", ev.OrderID, err)
	}
	if err := s.publisher.Publish(ctx, res.Event); err != nil {
		return fmt.Errorf("publish order cancelled: %w", err)
	}

	s.logger.Info("saga: order cancelled after reservation failure",
		zap.String("order_id", ev.OrderID.String()))
	return nil
}

// RecoverStuckOrder is the safety net for lost events and crashed handlers,
// invoked by the periodic sweep for orders sitting in PENDING past the
// configured threshold. It releases whatever stock the order may hold
// (best-effort: an untouched ledger or a missing SKU is not fatal) and
// cancels the order.
func (s *SagaOrchestrator) RecoverStuckOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		s.logger.Warn("saga: stuck order vanished",
			zap.String("order_id", orderID.String()))
		return nil
	}
	if order.Status() != domain.OrderStatusPending {
		s.logger.Debug("saga: order no longer pending, skipping recovery",
			zap.String("order_id", orderID.String()),
			zap.String("status", string(order.Status())))
		return nil
	}

	if err := s.inventory.Release(ctx, orderID, order.SkuQuantities()); err != nil {
		// Stock may never have been reserved for this order.
		s.logger.Debug("saga: recovery stock release not applied",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
	}

	res := order.CancelIfNotAlreadyCancelled("timeout recovery")
	if res.Event == nil {
		return nil
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save recovered order %s: %w", orderID, err)
	}
	if err := s.publisher.Publish(ctx, res.Event); err != nil {
		return fmt.Errorf("publish order cancelled: %w", err)
	}

	s.logger.Info("saga: stuck order recovered",
		zap.String("order_id", orderID.String()))
	return nil
}
