package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/januslabs/janusd/internal/domain"
)

func TestRetryTransientFailure(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return domain.ErrNonceConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentFailure(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}
	permanent := errors.New("reverted")

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhaustsBudget(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return domain.ErrNonceConflict
	})
	assert.ErrorIs(t, err, domain.ErrNonceConflict)
	assert.Equal(t, 2, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, Backoff: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Do(ctx, func(ctx context.Context) error {
		return domain.ErrNonceConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMintRefFormat(t *testing.T) {
	ref := mintRef(1, "Max Verstappen", 3, "Race")
	assert.Equal(t, "ipfs://Qm1_Max_Verstappen_P3_Race", ref)
}

func TestPodiumRefWinner(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	ref := podiumRef(1, "Max Verstappen", 1, now)
	assert.Equal(t, "ipfs://QmUpdated_1_Max_Verstappen_Winner_1700000000000", ref)
}
