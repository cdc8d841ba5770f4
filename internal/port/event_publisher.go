package port

import (
	"context"

	"github.com/rl1809/oms/internal/core/domain"
)

// EventPublisher delivers domain events at-least-once. Handlers downstream
// must be idempotent; nothing here deduplicates.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
