package domain

import (
	"fmt"
	"strings"
)

// StockLevel is a non-negative quantity. Arithmetic returns a new value and
// rejects non-positive deltas and negative results.
type StockLevel int

func NewStockLevel(quantity int) (StockLevel, error) {
	if quantity < 0 {
		return 0, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidStockLevel)
	}
	return StockLevel(quantity), nil
}

func (s StockLevel) Quantity() int { return int(s) }

func (s StockLevel) IncreaseBy(amount int) (StockLevel, error) {
	if amount <= 0 {
		return s, fmt.Errorf("%w: increase amount must be positive", ErrInvalidStockLevel)
	}
	return s + StockLevel(amount), nil
}

func (s StockLevel) DecreaseBy(amount int) (StockLevel, error) {
	if amount <= 0 {
		return s, fmt.Errorf("%w: decrease amount must be positive", ErrInvalidStockLevel)
	}
	if int(s) < amount {
		return s, fmt.Errorf("%w: cannot decrease %d below %d", ErrInvalidStockLevel, s, amount)
	}
	return s - StockLevel(amount), nil
}

// InventoryItem is the per-SKU stock ledger: the single source of truth for
// oversell prevention. Available and reserved change together, so their sum
// is conserved across reserve/release pairs. The version field belongs to
// the persistence adapter's optimistic concurrency check, not to business
// logic.
type InventoryItem struct {
	sku       string
	available StockLevel
	reserved  StockLevel
	version   int
}

func NewInventoryItem(sku string, available StockLevel) (*InventoryItem, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, fmt.Errorf("inventory item: sku must not be blank")
	}
	return &InventoryItem{sku: sku, available: available}, nil
}

// ReconstructInventoryItem rebuilds the ledger entry from persisted values.
// Levels are set directly: replaying reserve/release here would double-count
// effects already captured in the stored figures.
func ReconstructInventoryItem(sku string, available, reserved, version int) *InventoryItem {
	return &InventoryItem{
		sku:       sku,
		available: StockLevel(available),
		reserved:  StockLevel(reserved),
		version:   version,
	}
}

func (i *InventoryItem) Sku() string           { return i.sku }
func (i *InventoryItem) Available() StockLevel { return i.available }
func (i *InventoryItem) Reserved() StockLevel  { return i.reserved }
func (i *InventoryItem) Version() int          { return i.version }

// Reserve moves quantity from available to reserved. The item is unchanged
// when the reservation cannot be satisfied.
func (i *InventoryItem) Reserve(quantity int) error {
	if quantity > i.available.Quantity() {
		return fmt.Errorf("%w: sku %s has %d available, requested %d",
			ErrInsufficientStock, i.sku, i.available, quantity)
	}
	available, err := i.available.DecreaseBy(quantity)
	if err != nil {
		return err
	}
	reserved, err := i.reserved.IncreaseBy(quantity)
	if err != nil {
		return err
	}
	i.available = available
	i.reserved = reserved
	return nil
}

// Release moves quantity back from reserved to available. The item is
// unchanged when more is released than was reserved.
func (i *InventoryItem) Release(quantity int) error {
	if quantity > i.reserved.Quantity() {
		return fmt.Errorf("%w: sku %s has %d reserved, requested release of %d",
			ErrInvalidReservationState, i.sku, i.reserved, quantity)
	}
	reserved, err := i.reserved.DecreaseBy(quantity)
	if err != nil {
		return err
	}
	available, err := i.available.IncreaseBy(quantity)
	if err != nil {
		return err
	}
	i.reserved = reserved
	i.available = available
	return nil
}
