package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/core/domain"
)

type recordingSaga struct {
	mu                sync.Mutex
	placed            []domain.OrderPlaced
	reserved          []domain.StockReserved
	reservationFailed []domain.StockReservationFailed
	handleErr         error
}

func (s *recordingSaga) HandleOrderPlaced(ctx context.Context, ev domain.OrderPlaced) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed = append(s.placed, ev)
	return s.handleErr
}

func (s *recordingSaga) HandleStockReserved(ctx context.Context, ev domain.StockReserved) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved = append(s.reserved, ev)
	return s.handleErr
}

func (s *recordingSaga) HandleStockReservationFailed(ctx context.Context, ev domain.StockReservationFailed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservationFailed = append(s.reservationFailed, ev)
	return s.handleErr
}

func (s *recordingSaga) counts() (int, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.placed), len(s.reserved), len(s.reservationFailed)
}

func newTestBus() *Bus {
	return NewBus(16, time.Second, zap.NewNop())
}

func TestBusRoutesEventsToMatchingHandler(t *testing.T) {
	b := newTestBus()
	saga := &recordingSaga{}
	b.Run(saga)

	ctx := context.Background()
	orderID := uuid.New()
	if err := b.Publish(ctx, domain.NewOrderPlaced(orderID, map[string]int{"SKU-A": 1})); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := b.Publish(ctx, domain.NewStockReserved(orderID, map[string]int{"SKU-A": 1})); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := b.Publish(ctx, domain.NewStockReservationFailed(orderID, "insufficient stock")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if err := b.Publish(ctx, domain.NewOrderCancelled(orderID, "test")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	b.Close()
	b.Wait()

	placed, reserved, failed := saga.counts()
	if placed != 1 || reserved != 1 || failed != 1 {
		t.Errorf("expected one event per handler, got placed=%d reserved=%d failed=%d",
			placed, reserved, failed)
	}
	saga.mu.Lock()
	defer saga.mu.Unlock()
	if saga.placed[0].OrderID != orderID {
		t.Errorf("routed event carries wrong order id")
	}
}

func TestBusDrainsBufferedEventsOnClose(t *testing.T) {
	b := newTestBus()
	saga := &recordingSaga{}

	// Publish before the consumers start: everything sits in the buffers.
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := b.Publish(ctx, domain.NewOrderPlaced(uuid.New(), map[string]int{"SKU-A": 1})); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	b.Run(saga)
	b.Close()
	b.Wait()

	placed, _, _ := saga.counts()
	if placed != 10 {
		t.Errorf("expected all buffered events drained, got %d of 10", placed)
	}
}

func TestBusKeepsConsumingAfterHandlerError(t *testing.T) {
	b := newTestBus()
	saga := &recordingSaga{handleErr: errors.New("handler blew up")}
	b.Run(saga)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := b.Publish(ctx, domain.NewOrderPlaced(uuid.New(), map[string]int{"SKU-A": 1})); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	b.Close()
	b.Wait()

	placed, _, _ := saga.counts()
	if placed != 3 {
		t.Errorf("consumer loop must survive handler errors, got %d of 3", placed)
	}
}

func TestBusPublishHonorsContextWhenBufferFull(t *testing.T) {
	b := NewBus(1, time.Second, zap.NewNop())
	// No consumers running: the single slot fills and the next send blocks.
	ctx := context.Background()
	if err := b.Publish(ctx, domain.NewOrderPlaced(uuid.New(), nil)); err != nil {
		t.Fatalf("first publish failed: %v", err)
	}

	cancelled, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Publish(cancelled, domain.NewOrderPlaced(uuid.New(), nil))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error on full buffer, got %v", err)
	}
}

func TestBusPublishAfterCloseReturnsErrClosed(t *testing.T) {
	b := newTestBus()
	b.Run(&recordingSaga{})
	b.Close()
	b.Wait()

	err := b.Publish(context.Background(), domain.NewOrderPlaced(uuid.New(), nil))
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestBusCloseIsIdempotent(t *testing.T) {
	b := newTestBus()
	b.Run(&recordingSaga{})
	b.Close()
	b.Close()
	b.Wait()
}

type unknownEvent struct{}

func (unknownEvent) EventName() string     { return "unknown" }
func (unknownEvent) OccurredAt() time.Time { return time.Time{} }

func TestBusRejectsUnroutableEvent(t *testing.T) {
	b := newTestBus()
	if err := b.Publish(context.Background(), unknownEvent{}); err == nil {
		t.Error("expected error for unroutable event")
	}
}
