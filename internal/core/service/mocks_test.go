package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/oms/internal/core/domain"
)

// Mock InventoryRepository with real optimistic-version semantics: a save
// only succeeds when the item's version still matches the stored one, so
// concurrent tests observe genuine conflicts.
type invRecord struct {
	available int
	reserved  int
	version   int
}

type mockInventoryRepo struct {
	mu             sync.Mutex
	items          map[string]*invRecord
	forcedConflict map[string]int // remaining injected conflicts per sku
	loadOrder      []string
	saveCount      int
}

func newMockInventoryRepo() *mockInventoryRepo {
	return &mockInventoryRepo{
		items:          make(map[string]*invRecord),
		forcedConflict: make(map[string]int),
	}
}

func (m *mockInventoryRepo) seed(sku string, available int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[sku] = &invRecord{available: available}
}

func (m *mockInventoryRepo) record(sku string) invRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[sku]
}

func (m *mockInventoryRepo) FindBySku(ctx context.Context, sku string) (*domain.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadOrder = append(m.loadOrder, sku)

	rec, ok := m.items[sku]
	if !ok {
		return nil, nil
	}
	return domain.ReconstructInventoryItem(sku, rec.available, rec.reserved, rec.version), nil
}

func (m *mockInventoryRepo) Save(ctx context.Context, item *domain.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCount++

	if m.forcedConflict[item.Sku()] > 0 {
		m.forcedConflict[item.Sku()]--
		return domain.ErrConcurrencyConflict
	}

	rec, ok := m.items[item.Sku()]
	if !ok || rec.version != item.Version() {
		return domain.ErrConcurrencyConflict
	}
	rec.available = item.Available().Quantity()
	rec.reserved = item.Reserved().Quantity()
	rec.version++
	return nil
}

// Mock OrderRepository backed by reconstructed snapshots.
type storedOrder struct {
	items     []domain.OrderItem
	status    domain.OrderStatus
	createdAt time.Time
}

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*storedOrder
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[uuid.UUID]*storedOrder)}
}

func (m *mockOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID()] = &storedOrder{
		items:     order.Items(),
		status:    order.Status(),
		createdAt: order.CreatedAt(),
	}
	return nil
}

func (m *mockOrderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return domain.ReconstructOrder(orderID, stored.items, stored.status, stored.createdAt), nil
}

func (m *mockOrderRepo) FindStuckPending(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, stored := range m.orders {
		if stored.status == domain.OrderStatusPending && stored.createdAt.Before(olderThan) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockOrderRepo) status(orderID uuid.UUID) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[orderID]
	if !ok {
		return ""
	}
	return stored.status
}

// Mock EventPublisher recording everything published. Events named in
// failOn are rejected and not recorded.
type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	failOn map[string]error
}

func (m *mockPublisher) Publish(ctx context.Context, event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failOn[event.EventName()]; ok {
		return err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) published() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *mockPublisher) countByName(name string) int {
	count := 0
	for _, ev := range m.published() {
		if ev.EventName() == name {
			count++
		}
	}
	return count
}

// Mock Catalog with fixed prices.
type mockCatalog struct {
	prices map[string]decimal.Decimal
}

func (m *mockCatalog) GetPrice(ctx context.Context, sku string) (decimal.Decimal, bool, error) {
	price, ok := m.prices[sku]
	return price, ok, nil
}

func testRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2.0}
}
