package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/core/domain"
	"github.com/rl1809/oms/internal/port"
)

// PlaceOrderCommand carries the requested quantities per SKU. Validation
// happens at construction so malformed input never reaches the saga.
type PlaceOrderCommand struct {
	skuQuantities map[string]int
}

func NewPlaceOrderCommand(skuQuantities map[string]int) (PlaceOrderCommand, error) {
	if len(skuQuantities) == 0 {
		return PlaceOrderCommand{}, domain.ErrEmptyOrder
	}
	copied := make(map[string]int, len(skuQuantities))
	for sku, qty := range skuQuantities {
		if strings.TrimSpace(sku) == "" {
			return PlaceOrderCommand{}, fmt.Errorf("place order: sku must not be blank")
		}
		if qty <= 0 {
			return PlaceOrderCommand{}, fmt.Errorf("place order: quantity for %s must be positive, got %d", sku, qty)
		}
		copied[sku] = qty
	}
	return PlaceOrderCommand{skuQuantities: copied}, nil
}

func (c PlaceOrderCommand) SkuQuantities() map[string]int {
	copied := make(map[string]int, len(c.skuQuantities))
	for sku, qty := range c.skuQuantities {
		copied[sku] = qty
	}
	return copied
}

// OrderService owns the synchronous entry points of the order lifecycle:
// placement, customer cancellation, and status query. Everything after
// placement returns PENDING is asynchronous and driven by the saga.
type OrderService struct {
	orders    port.OrderRepository
	catalog   port.Catalog
	inventory *InventoryService
	publisher port.EventPublisher
	logger    *zap.Logger
}

func NewOrderService(
	orders port.OrderRepository,
	catalog port.Catalog,
	inventory *InventoryService,
	publisher port.EventPublisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		catalog:   catalog,
		inventory: inventory,
		publisher: publisher,
		logger:    logger,
	}
}

// PlaceOrder validates the command against the catalog, persists the order,
// moves it to PENDING and publishes OrderPlaced to start the reservation
// saga. Failures here are synchronous and visible to the caller; once the
// order is PENDING, outcomes arrive via the saga.
func (s *OrderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (uuid.UUID, error) {
	orderID := uuid.New()

	items, err := s.priceItems(ctx, cmd.SkuQuantities())
	if err != nil {
		return uuid.Nil, err
	}

	order, err := domain.NewOrder(orderID, items)
	if err != nil {
		return uuid.Nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return uuid.Nil, fmt.Errorf("save order: %w", err)
	}

	if _, err := order.MarkPending(); err != nil {
		return uuid.Nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return uuid.Nil, fmt.Errorf("save order: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.NewOrderPlaced(orderID, cmd.SkuQuantities())); err != nil {
		return uuid.Nil, fmt.Errorf("publish order placed: %w", err)
	}

	s.logger.Info("order placed",
		zap.String("order_id", orderID.String()),
		zap.Int("item_count", len(items)))
	return orderID, nil
}

// CancelOrder is the customer-initiated cancellation. It goes through the
// same state machine guard as the saga, so a CONFIRMED order can still be
// cancelled but a CANCELLED one cannot be cancelled twice. Stock held by a
// PENDING or CONFIRMED order is released best-effort; a failed release is
// logged and does not undo the cancellation.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}

	hadStock := order.Status() == domain.OrderStatusPending || order.Status() == domain.OrderStatusConfirmed

	res, err := order.Cancel(reason)
	if err != nil {
		return err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("save order: %w", err)
	}

	if hadStock {
		if err := s.inventory.Release(ctx, orderID, order.SkuQuantities()); err != nil {
			s.logger.Warn("stock release after cancellation failed",
				zap.String("order_id", orderID.String()),
				zap.Error(err))
		}
	}

	if res.Event != nil {
		if err := s.publisher.Publish(ctx, res.Event); err != nil {
			return fmt.Errorf("publish order cancelled: %w", err)
		}
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("reason", reason))
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return order, nil
}

func (s *OrderService) priceItems(ctx context.Context, skuQuantities map[string]int) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(skuQuantities))
	for _, sku := range sortedSkus(skuQuantities) {
		price, found, err := s.catalog.GetPrice(ctx, sku)
		if err != nil {
			return nil, fmt.Errorf("catalog lookup for %s: %w", sku, err)
		}
		if !found {
			return nil, fmt.Errorf("%w: %s not in catalog", domain.ErrSkuNotFound, sku)
		}
		item, err := domain.NewOrderItem(sku, skuQuantities[sku], price)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
