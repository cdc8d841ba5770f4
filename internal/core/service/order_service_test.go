package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/core/domain"
)

func newTestOrderService(
	orders *mockOrderRepo,
	inventory *mockInventoryRepo,
	catalog *mockCatalog,
	pub *mockPublisher,
) *OrderService {
	invSvc := NewInventoryService(inventory, pub, testRetryPolicy(), zap.NewNop())
	return NewOrderService(orders, catalog, invSvc, pub, zap.NewNop())
}

func stdCatalog() *mockCatalog {
	return &mockCatalog{prices: map[string]decimal.Decimal{
		"SKU-A": decimal.NewFromFloat(19.99),
		"SKU-B": decimal.NewFromFloat(34.50),
	}}
}

func TestNewPlaceOrderCommand_Validation(t *testing.T) {
	if _, err := NewPlaceOrderCommand(nil); !errors.Is(err, domain.ErrEmptyOrder) {
		t.Errorf("expected ErrEmptyOrder for nil map, got: %v", err)
	}
	if _, err := NewPlaceOrderCommand(map[string]int{}); !errors.Is(err, domain.ErrEmptyOrder) {
		t.Errorf("expected ErrEmptyOrder for empty map, got: %v", err)
	}
	if _, err := NewPlaceOrderCommand(map[string]int{"  ": 1}); err == nil {
		t.Error("expected error for blank sku")
	}
	if _, err := NewPlaceOrderCommand(map[string]int{"SKU-A": 0}); err == nil {
		t.Error("expected error for zero quantity")
	}
	if _, err := NewPlaceOrderCommand(map[string]int{"SKU-A": -2}); err == nil {
		t.Error("expected error for negative quantity")
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	orders := newMockOrderRepo()
	inventory := newMockInventoryRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(orders, inventory, stdCatalog(), pub)

	cmd, err := NewPlaceOrderCommand(map[string]int{"SKU-A": 2, "SKU-B": 1})
	if err != nil {
		t.Fatalf("command rejected: %v", err)
	}

	orderID, err := svc.PlaceOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	if orders.status(orderID) != domain.OrderStatusPending {
		t.Errorf("expected PENDING after placement, got %s", orders.status(orderID))
	}

	events := pub.published()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	placed, ok := events[0].(domain.OrderPlaced)
	if !ok {
		t.Fatalf("expected OrderPlaced, got %T", events[0])
	}
	if placed.OrderID != orderID {
		t.Errorf("event order id mismatch: %s", placed.OrderID)
	}
	if placed.SkuQuantities["SKU-A"] != 2 || placed.SkuQuantities["SKU-B"] != 1 {
		t.Errorf("event quantities mismatch: %v", placed.SkuQuantities)
	}
}

func TestPlaceOrder_PricesItemsFromCatalog(t *testing.T) {
	orders := newMockOrderRepo()
	inventory := newMockInventoryRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(orders, inventory, stdCatalog(), pub)

	cmd, _ := NewPlaceOrderCommand(map[string]int{"SKU-A": 3})
	orderID, err := svc.PlaceOrder(context.Background(), cmd)
	if err != nil {
		t.Fatalf("place order failed: %v", err)
	}

	order, err := svc.GetOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	items := order.Items()
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if !items[0].UnitPrice().Equal(decimal.NewFromFloat(19.99)) {
		t.Errorf("expected catalog price 19.99, got %s", items[0].UnitPrice())
	}
}

func TestPlaceOrder_UnknownSkuRejectedSynchronously(t *testing.T) {
	orders := newMockOrderRepo()
	inventory := newMockInventoryRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(orders, inventory, stdCatalog(), pub)

	cmd, _ := NewPlaceOrderCommand(map[string]int{"SKU-MISSING": 1})
	_, err := svc.PlaceOrder(context.Background(), cmd)
	if !errors.Is(err, domain.ErrSkuNotFound) {
		t.Fatalf("expected ErrSkuNotFound, got: %v", err)
	}

	if len(orders.orders) != 0 {
		t.Error("no order should be persisted when the catalog lookup fails")
	}
	if len(pub.published()) != 0 {
		t.Error("no event should be published when placement fails")
	}
}

func TestCancelOrder_ConfirmedOrderReleasesStock(t *testing.T) {
	orders := newMockOrderRepo()
	inventory := newMockInventoryRepo()
	inventory.seed("SKU-A", 100)
	pub := &mockPublisher{}
	svc := newTestOrderService(orders, inventory, stdCatalog(), pub)

	// Build a confirmed order that holds 10 reserved units.
	item, _ := domain.NewOrderItem("SKU-A", 10, decimal.NewFromInt(5))
	order, _ := domain.NewOrder(uuid.New(), []domain.OrderItem{item})
	order.MarkPending()
	order.Confirm()
	orders.Save(context.Background(), order)

	reserveItem, _ := inventory.FindBySku(context.Background(), "SKU-A")
	reserveItem.Reserve(10)
	inventory.Save(context.Background(), reserveItem)

	if err := svc.CancelOrder(context.Background(), order.ID(), "changed my mind"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if orders.status(order.ID()) != domain.OrderStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", orders.status(order.ID()))
	}
	rec := inventory.record("SKU-A")
	if rec.reserved != 0 || rec.available != 100 {
		t.Errorf("stock not released: %+v", rec)
	}
	if pub.countByName(domain.EventOrderCancelled) != 1 {
		t.Errorf("expected one OrderCancelled event, got %d",
			pub.countByName(domain.EventOrderCancelled))
	}
}

func TestCancelOrder_CancelledOrderRejected(t *testing.T) {
	orders := newMockOrderRepo()
	inventory := newMockInventoryRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(orders, inventory, stdCatalog(), pub)

	item, _ := domain.NewOrderItem("SKU-A", 1, decimal.NewFromInt(5))
	order, _ := domain.NewOrder(uuid.New(), []domain.OrderItem{item})
	order.MarkPending()
	order.Cancel("first")
	orders.Save(context.Background(), order)

	err := svc.CancelOrder(context.Background(), order.ID(), "second")
	if !errors.Is(err, domain.ErrInvalidOrderState) {
		t.Fatalf("expected ErrInvalidOrderState, got: %v", err)
	}
}

func TestCancelOrder_NotFound(t *testing.T) {
	orders := newMockOrderRepo()
	inventory := newMockInventoryRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(orders, inventory, stdCatalog(), pub)

	err := svc.CancelOrder(context.Background(), uuid.New(), "whatever")
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	orders := newMockOrderRepo()
	inventory := newMockInventoryRepo()
	pub := &mockPublisher{}
	svc := newTestOrderService(orders, inventory, stdCatalog(), pub)

	_, err := svc.GetOrder(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}
