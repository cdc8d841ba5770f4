package bus

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/core/domain"
	"github.com/rl1809/oms/internal/port"
)

// MirroredPublisher delivers to the primary publisher (the in-process bus,
// which drives the saga) and then mirrors to a secondary one (the external
// notifier). Mirror failures are logged, never propagated: the mirror is a
// notification fan-out, and an outage there must not fail the saga or make
// a caller believe an accepted order went wrong.
type MirroredPublisher struct {
	primary port.EventPublisher
	mirror  port.EventPublisher
	logger  *zap.Logger
}

func NewMirroredPublisher(primary, mirror port.EventPublisher, logger *zap.Logger) *MirroredPublisher {
	return &MirroredPublisher{primary: primary, mirror: mirror, logger: logger}
}

func (p *MirroredPublisher) Publish(ctx context.Context, event domain.Event) error {
	if err := p.primary.Publish(ctx, event); err != nil {
		return err
	}
	if err := p.mirror.Publish(ctx, event); err != nil {
		p.logger.Warn("event mirror publish failed",
			zap.String("event", event.EventName()),
			zap.Error(err))
	}
	return nil
}
