package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rl1809/oms/internal/core/domain"
)

// RetryPolicy bounds the automatic retries on optimistic-lock conflicts:
// MaxAttempts total attempts, exponential delay between them, plus full
// random jitter so competitors on the same SKU do not retry in lockstep.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= p.Multiplier
	}
	jitter := time.Duration(rand.Int63n(int64(delay) + 1))
	return time.Duration(delay) + jitter
}

// retryOnConflict runs fn until it succeeds, fails with a non-conflict
// error, or exhausts the policy. Only domain.ErrConcurrencyConflict is
// retried; everything else is a final outcome. The sleep between attempts
// holds no locks and respects ctx cancellation.
func retryOnConflict(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= policy.MaxAttempts {
			return err
		}
		select {
		case <-time.After(policy.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
