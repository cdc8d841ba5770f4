package port

import (
	"context"

	"github.com/rl1809/oms/internal/core/domain"
)

type InventoryRepository interface {
	// FindBySku returns nil, nil when no ledger entry exists for the SKU.
	FindBySku(ctx context.Context, sku string) (*domain.InventoryItem, error)

	// Save persists the item using the version read at load time and returns
	// domain.ErrConcurrencyConflict when a concurrent writer got there first.
	Save(ctx context.Context, item *domain.InventoryItem) error
}
