package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/core/domain"
)

// ErrClosed is returned by Publish after Close. A handler that loses a
// follow-up event this way leaves its order in PENDING, which the recovery
// sweep picks up on the next start.
var ErrClosed = errors.New("bus: closed")

// SagaHandler is what the bus drives: one method per saga event kind.
// Satisfied by service.SagaOrchestrator.
type SagaHandler interface {
	HandleOrderPlaced(ctx context.Context, ev domain.OrderPlaced) error
	HandleStockReserved(ctx context.Context, ev domain.StockReserved) error
	HandleStockReservationFailed(ctx context.Context, ev domain.StockReservationFailed) error
}

// Bus is the in-process event transport: one buffered channel per event
// kind, one consumer goroutine per channel, the saga as the consumer. The
// explicit channels make delivery order per event kind and the at-least-once
// idempotency requirement visible in the type system instead of hiding them
// behind a subscription registry.
type Bus struct {
	orderPlaced       chan domain.OrderPlaced
	stockReserved     chan domain.StockReserved
	reservationFailed chan domain.StockReservationFailed
	orderCancelled    chan domain.OrderCancelled

	handlerTimeout time.Duration
	logger         *zap.Logger
	wg             sync.WaitGroup

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewBus(bufferSize int, handlerTimeout time.Duration, logger *zap.Logger) *Bus {
	return &Bus{
		orderPlaced:       make(chan domain.OrderPlaced, bufferSize),
		stockReserved:     make(chan domain.StockReserved, bufferSize),
		reservationFailed: make(chan domain.StockReservationFailed, bufferSize),
		orderCancelled:    make(chan domain.OrderCancelled, bufferSize),
		handlerTimeout:    handlerTimeout,
		logger:            logger,
	}
}

// Publish routes the event to its channel. Blocks only when the channel
// buffer is full, and then still honors ctx cancellation. The read lock
// keeps Close from closing a channel under an in-flight send: saga handlers
// publish follow-up events from inside the consumer loops.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	switch ev := event.(type) {
	case domain.OrderPlaced:
		return send(ctx, b.orderPlaced, ev)
	case domain.StockReserved:
		return send(ctx, b.stockReserved, ev)
	case domain.StockReservationFailed:
		return send(ctx, b.reservationFailed, ev)
	case domain.OrderCancelled:
		return send(ctx, b.orderCancelled, ev)
	default:
		return fmt.Errorf("bus: unroutable event %q", event.EventName())
	}
}

func send[E domain.Event](ctx context.Context, ch chan<- E, ev E) error {
	select {
	case ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts one consumer loop per event kind. Handler errors are logged
// and the loop moves on; redelivery is not the bus's job, stuck orders are
// the recovery sweep's. OrderCancelled has no saga step; its loop just
// records the fact for audit.
func (b *Bus) Run(saga SagaHandler) {
	b.wg.Add(4)

	go consume(b, b.orderPlaced, saga.HandleOrderPlaced)
	go consume(b, b.stockReserved, saga.HandleStockReserved)
	go consume(b, b.reservationFailed, saga.HandleStockReservationFailed)
	go consume(b, b.orderCancelled, func(ctx context.Context, ev domain.OrderCancelled) error {
		b.logger.Info("order cancelled",
			zap.String("order_id", ev.OrderID.String()),
			zap.String("reason", ev.Reason))
		return nil
	})
}

func consume[E domain.Event](b *Bus, ch <-chan E, handle func(context.Context, E) error) {
	defer b.wg.Done()
	for ev := range ch {
		ctx, cancel := context.WithTimeout(context.Background(), b.handlerTimeout)
		if err := handle(ctx, ev); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event", ev.EventName()),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and lets the consumers drain what is already
// buffered. Wait returns once every loop has exited.
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.orderPlaced)
		close(b.stockReserved)
		close(b.reservationFailed)
		close(b.orderCancelled)
	})
}

func (b *Bus) Wait() {
	b.wg.Wait()
}
