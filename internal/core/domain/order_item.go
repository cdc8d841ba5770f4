package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderItem is an immutable value object. Equality is by value.
type OrderItem struct {
	sku       string
	quantity  int
	unitPrice decimal.Decimal
}

func NewOrderItem(sku string, quantity int, unitPrice decimal.Decimal) (OrderItem, error) {
	if strings.TrimSpace(sku) == "" {
		return OrderItem{}, fmt.Errorf("order item: sku must not be blank")
	}
	if quantity <= 0 {
		return OrderItem{}, fmt.Errorf("order item %s: quantity must be positive, got %d", sku, quantity)
	}
	if unitPrice.Sign() <= 0 {
		return OrderItem{}, fmt.Errorf("order item %s: unit price must be positive, got %s", sku, unitPrice)
	}
	return OrderItem{sku: sku, quantity: quantity, unitPrice: unitPrice}, nil
}

// ReconstructOrderItem rebuilds an item from persisted values without
// validation. Storage adapters only: rows written under earlier rules must
// load even when they would fail today's construction checks.
func ReconstructOrderItem(sku string, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{sku: sku, quantity: quantity, unitPrice: unitPrice}
}

func (i OrderItem) Sku() string                { return i.sku }
func (i OrderItem) Quantity() int              { return i.quantity }
func (i OrderItem) UnitPrice() decimal.Decimal { return i.unitPrice }

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.unitPrice.Mul(decimal.NewFromInt(int64(i.quantity)))
}

func (i OrderItem) Equal(other OrderItem) bool {
	return i.sku == other.sku &&
		i.quantity == other.quantity &&
		i.unitPrice.Equal(other.unitPrice)
}
