package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// TransitionResult is what a state transition hands back to its caller:
// the status after the transition plus at most one emitted event. Returning
// events instead of queueing them inside the aggregate means the caller
// receives each event exactly once and there is nothing to drain or forget.
type TransitionResult struct {
	Status OrderStatus
	Event  Event
}

// Order is the aggregate root for the order lifecycle:
//
//	CREATED -> PENDING -> CONFIRMED -> COMPLETED
//	CREATED/PENDING/CONFIRMED -> CANCELLED (terminal)
//
// State changes only through the transition methods below. Persistence
// rebuilds an Order with ReconstructOrder, which bypasses the guards.
type Order struct {
	id        uuid.UUID
	items     []OrderItem
	status    OrderStatus
	createdAt time.Time
}

func NewOrder(id uuid.UUID, items []OrderItem) (*Order, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("order id must be provided")
	}
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	copied := make([]OrderItem, len(items))
	copy(copied, items)
	return &Order{
		id:        id,
		items:     copied,
		status:    OrderStatusCreated,
		createdAt: time.Now(),
	}, nil
}

// ReconstructOrder rebuilds an order from persisted state without running
// transition guards. Storage adapters only.
func ReconstructOrder(id uuid.UUID, items []OrderItem, status OrderStatus, createdAt time.Time) *Order {
	copied := make([]OrderItem, len(items))
	copy(copied, items)
	return &Order{id: id, items: copied, status: status, createdAt: createdAt}
}

func (o *Order) ID() uuid.UUID        { return o.id }
func (o *Order) Status() OrderStatus  { return o.status }
func (o *Order) CreatedAt() time.Time { return o.createdAt }

func (o *Order) Items() []OrderItem {
	copied := make([]OrderItem, len(o.items))
	copy(copied, o.items)
	return copied
}

// SkuQuantities aggregates item quantities per SKU, the shape the
// reservation use cases work with.
func (o *Order) SkuQuantities() map[string]int {
	qty := make(map[string]int, len(o.items))
	for _, item := range o.items {
		qty[item.Sku()] += item.Quantity()
	}
	return qty
}

// MarkPending moves the order into the saga's in-flight state. Legal only
// from CREATED.
func (o *Order) MarkPending() (TransitionResult, error) {
	if o.status != OrderStatusCreated {
		return TransitionResult{Status: o.status}, fmt.Errorf(
			"%w: cannot mark %s order pending", ErrInvalidOrderState, o.status)
	}
	o.status = OrderStatusPending
	return TransitionResult{Status: o.status}, nil
}

// Confirm completes the happy path of the reservation saga. Legal only from
// PENDING.
func (o *Order) Confirm() (TransitionResult, error) {
	if o.status != OrderStatusPending {
		return TransitionResult{Status: o.status}, fmt.Errorf(
			"%w: cannot confirm %s order", ErrInvalidOrderState, o.status)
	}
	o.status = OrderStatusConfirmed
	return TransitionResult{Status: o.status}, nil
}

// Complete marks the order fulfilled. Legal only from CONFIRMED.
func (o *Order) Complete() (TransitionResult, error) {
	if o.status != OrderStatusConfirmed {
		return TransitionResult{Status: o.status}, fmt.Errorf(
			"%w: cannot complete %s order", ErrInvalidOrderState, o.status)
	}
	o.status = OrderStatusCompleted
	return TransitionResult{Status: o.status}, nil
}

// Cancel moves the order to its terminal CANCELLED state and emits an
// OrderCancelled event. Illegal once the order is CANCELLED or COMPLETED.
func (o *Order) Cancel(reason string) (TransitionResult, error) {
	if o.status == OrderStatusCancelled {
		return TransitionResult{Status: o.status}, fmt.Errorf(
			"%w: order is already cancelled", ErrInvalidOrderState)
	}
	if o.status == OrderStatusCompleted {
		return TransitionResult{Status: o.status}, fmt.Errorf(
			"%w: cannot cancel a completed order", ErrInvalidOrderState)
	}
	o.status = OrderStatusCancelled
	return TransitionResult{
		Status: o.status,
		Event:  NewOrderCancelled(o.id, reason),
	}, nil
}

// CancelIfNotAlreadyCancelled is the idempotent form of Cancel used by
// compensation paths: a no-op (no event) when the order is already in a
// terminal state.
func (o *Order) CancelIfNotAlreadyCancelled(reason string) TransitionResult {
	if o.status == OrderStatusCancelled || o.status == OrderStatusCompleted {
		return TransitionResult{Status: o.status}
	}
	res, _ := o.Cancel(reason)
	return res
}

// Equal compares orders by identity only. Two orders with the same id are
// the same order regardless of item contents.
func (o *Order) Equal(other *Order) bool {
	if other == nil {
		return false
	}
	return o.id == other.id
}
