package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rl1809/oms/internal/core/domain"
)

type MySQLOrderAdapter struct {
	db *sql.DB
}

func NewMySQLOrderAdapter(db *sql.DB) *MySQLOrderAdapter {
	return &MySQLOrderAdapter{db: db}
}

// Save upserts the order row and replaces its item rows in one transaction.
// Items are immutable once attached, so replace-all is simpler than diffing.
func (m *MySQLOrderAdapter) Save(ctx context.Context, order *domain.Order) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, status, created_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status)`,
		order.ID().String(), string(order.Status()), order.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, order.ID().String())
	if err != nil {
		return fmt.Errorf("clear order items: %w", err)
	}

	for _, item := range order.Items() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, sku, quantity, unit_price)
			VALUES (?, ?, ?, ?)`,
			order.ID().String(), item.Sku(), item.Quantity(), item.UnitPrice().String(),
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (m *MySQLOrderAdapter) FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var (
		status    string
		createdAt time.Time
	)
	err := m.db.QueryRowContext(ctx, `
		SELECT status, created_at FROM orders WHERE id = ?`, orderID.String(),
	).Scan(&status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	items, err := m.loadItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return domain.ReconstructOrder(orderID, items, domain.OrderStatus(status), createdAt), nil
}

func (m *MySQLOrderAdapter) FindStuckPending(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id FROM orders WHERE status = ? AND created_at < ?`,
		string(domain.OrderStatusPending), olderThan,
	)
	if err != nil {
		return nil, fmt.Errorf("query stuck orders: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse order id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (m *MySQLOrderAdapter) loadItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT sku, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY sku`,
		orderID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			sku      string
			quantity int
			rawPrice string
		)
		if err := rows.Scan(&sku, &quantity, &rawPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		price, err := decimal.NewFromString(rawPrice)
		if err != nil {
			return nil, fmt.Errorf("parse unit price %q: %w", rawPrice, err)
		}
		items = append(items, domain.ReconstructOrderItem(sku, quantity, price))
	}
	return items, rows.Err()
}
