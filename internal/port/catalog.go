package port

import (
	"context"

	"github.com/shopspring/decimal"
)

type Catalog interface {
	// GetPrice resolves the current unit price for a SKU. The second return
	// value is false when the SKU is not in the catalog.
	GetPrice(ctx context.Context, sku string) (decimal.Decimal, bool, error)
}
