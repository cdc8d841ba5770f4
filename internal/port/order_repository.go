package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/oms/internal/core/domain"
)

type OrderRepository interface {
	// Save persists the order's current status and items.
	Save(ctx context.Context, order *domain.Order) error

	// FindByID returns nil, nil when the order does not exist. Reconstruction
	// must go through domain.ReconstructOrder, never through transitions.
	FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)

	// FindStuckPending lists ids of orders still PENDING since before the
	// cutoff. Feeds the timeout-recovery sweep.
	FindStuckPending(ctx context.Context, olderThan time.Time) ([]uuid.UUID, error)
}
