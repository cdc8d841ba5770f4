package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/oms/internal/core/domain"
)

type MySQLInventoryAdapter struct {
	db *sql.DB
}

func NewMySQLInventoryAdapter(db *sql.DB) *MySQLInventoryAdapter {
	return &MySQLInventoryAdapter{db: db}
}

func (m *MySQLInventoryAdapter) FindBySku(ctx context.Context, sku string) (*domain.InventoryItem, error) {
	var (
		available int
		reserved  int
		version   int
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT available_stock, reserved_stock, version
		FROM inventory WHERE sku = ?`, sku,
	).Scan(&available, &reserved, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	return domain.ReconstructInventoryItem(sku, available, reserved, version), nil
}

// Save writes the item guarded by the version read at load time. Zero rows
// affected means a concurrent writer already bumped the version.
func (m *MySQLInventoryAdapter) Save(ctx context.Context, item *domain.InventoryItem) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE inventory
		SET available_stock = ?, reserved_stock = ?, version = version + 1, updated_at = NOW()
		WHERE sku = ? AND version = ?`,
		item.Available().Quantity(), item.Reserved().Quantity(), item.Sku(), item.Version(),
	)
	if err != nil {
		return fmt.Errorf("update inventory: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}
