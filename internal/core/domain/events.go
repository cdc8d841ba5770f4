package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderPlaced            = "order.placed"
	EventStockReserved          = "stock.reserved"
	EventStockReservationFailed = "stock.reservation_failed"
	EventOrderCancelled         = "order.cancelled"
)

// Event is a fact that happened inside the core, published for the saga
// and for external notification consumers. Delivery is at-least-once.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

type OrderPlaced struct {
	OrderID       uuid.UUID      `json:"order_id"`
	SkuQuantities map[string]int `json:"sku_quantities"`
	Occurred      time.Time      `json:"occurred_at"`
}

func NewOrderPlaced(orderID uuid.UUID, skuQuantities map[string]int) OrderPlaced {
	qty := make(map[string]int, len(skuQuantities))
	for sku, q := range skuQuantities {
		qty[sku] = q
	}
	return OrderPlaced{OrderID: orderID, SkuQuantities: qty, Occurred: time.Now()}
}

func (e OrderPlaced) EventName() string     { return EventOrderPlaced }
func (e OrderPlaced) OccurredAt() time.Time { return e.Occurred }

type StockReserved struct {
	OrderID            uuid.UUID      `json:"order_id"`
	ReservedQuantities map[string]int `json:"reserved_quantities"`
	Occurred           time.Time      `json:"occurred_at"`
}

func NewStockReserved(orderID uuid.UUID, reserved map[string]int) StockReserved {
	qty := make(map[string]int, len(reserved))
	for sku, q := range reserved {
		qty[sku] = q
	}
	return StockReserved{OrderID: orderID, ReservedQuantities: qty, Occurred: time.Now()}
}

func (e StockReserved) EventName() string     { return EventStockReserved }
func (e StockReserved) OccurredAt() time.Time { return e.Occurred }

type StockReservationFailed struct {
	OrderID  uuid.UUID `json:"order_id"`
	Reason   string    `json:"reason"`
	Occurred time.Time `json:"occurred_at"`
}

func NewStockReservationFailed(orderID uuid.UUID, reason string) StockReservationFailed {
	return StockReservationFailed{OrderID: orderID, Reason: reason, Occurred: time.Now()}
}

func (e StockReservationFailed) EventName() string     { return EventStockReservationFailed }
func (e StockReservationFailed) OccurredAt() time.Time { return e.Occurred }

type OrderCancelled struct {
	OrderID  uuid.UUID `json:"order_id"`
	Reason   string    `json:"reason"`
	Occurred time.Time `json:"occurred_at"`
}

func NewOrderCancelled(orderID uuid.UUID, reason string) OrderCancelled {
	return OrderCancelled{OrderID: orderID, Reason: reason, Occurred: time.Now()}
}

func (e OrderCancelled) EventName() string     { return EventOrderCancelled }
func (e OrderCancelled) OccurredAt() time.Time { return e.Occurred }
