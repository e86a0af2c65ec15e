// Package oracle implements the settlement loop: it polls the results feed,
// derives final standings for each new session, mints or refreshes the
// corresponding dynamic assets, and resolves matching prediction markets.
package oracle

import (
	"context"
	"time"

	"github.com/januslabs/janusd/internal/domain"
)

// RetryPolicy is a bounded retry policy for mutating chain calls. Only
// transient (nonce-class) failures are retried; anything else is returned to
// the caller on the first attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Backoff is the fixed wait between attempts.
	Backoff time.Duration
}

// Do runs fn, retrying transient failures up to the policy's attempt budget.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || !domain.IsTransient(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if werr := sleepCtx(ctx, p.Backoff); werr != nil {
			return werr
		}
	}
	return err
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
