package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/oms/internal/port"
)

// Recoverer is the saga entry point the sweep drives.
type Recoverer interface {
	RecoverStuckOrder(ctx context.Context, orderID uuid.UUID) error
}

// RecoverySweeper periodically looks for orders stuck in PENDING past the
// threshold and hands each one to the saga's recovery path. The sweep is
// the system's only timeout mechanism; interval and threshold are
// deployment configuration.
type RecoverySweeper struct {
	orders    port.OrderRepository
	recoverer Recoverer
	interval  time.Duration
	threshold time.Duration
	logger    *zap.Logger
}

func NewRecoverySweeper(
	orders port.OrderRepository,
	recoverer Recoverer,
	interval, threshold time.Duration,
	logger *zap.Logger,
) *RecoverySweeper {
	return &RecoverySweeper{
		orders:    orders,
		recoverer: recoverer,
		interval:  interval,
		threshold: threshold,
		logger:    logger,
	}
}

func (s *RecoverySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("recovery sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("threshold", s.threshold))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("recovery sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. Failures on individual orders are logged and the
// pass continues; the next tick retries them.
func (s *RecoverySweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.threshold)
	ids, err := s.orders.FindStuckPending(ctx, cutoff)
	if err != nil {
		s.logger.Error("stuck order query failed", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}

	s.logger.Warn("stuck orders detected", zap.Int("count", len(ids)))
	for _, id := range ids {
		if err := s.recoverer.RecoverStuckOrder(ctx, id); err != nil {
			s.logger.Error("stuck order recovery failed",
				zap.String("order_id", id.String()),
				zap.Error(err))
		}
	}
}
