package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type MySQLCatalogAdapter struct {
	db *sql.DB
}

func NewMySQLCatalogAdapter(db *sql.DB) *MySQLCatalogAdapter {
	return &MySQLCatalogAdapter{db: db}
}

// GetPrice looks up the price of an active product. Inactive or unknown
// SKUs report not-found, which rejects the order synchronously at placement.
func (m *MySQLCatalogAdapter) GetPrice(ctx context.Context, sku string) (decimal.Decimal, bool, error) {
	var rawPrice string
	err := m.db.QueryRowContext(ctx, `
		SELECT price FROM products WHERE sku = ? AND active = 1`, sku,
	).Scan(&rawPrice)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("query product price: %w", err)
	}

	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("parse price %q: %w", rawPrice, err)
	}
	return price, true, nil
}
