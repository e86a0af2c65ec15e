package domain

import (
	"context"
	"math/big"
	"time"
)

// PriceCache holds the latest pool spot price for cheap frontend reads.
type PriceCache interface {
	SetPrice(ctx context.Context, pair string, price *big.Int, ts time.Time) error
	GetPrice(ctx context.Context, pair string) (*big.Int, time.Time, error)
}

// LockManager provides distributed locking so only one settlement loop runs
// at a time even when janusd is deployed in multiple replicas.
type LockManager interface {
	// Acquire obtains the lock for key with the given TTL and returns an
	// unlock function, or ErrLockHeld if another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter applies a sliding-window request limit per key. The API server
// uses it for per-client limiting.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted under the limit,
	// counting it when it is.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus is the pub/sub fabric carrying chain events from the node to the
// WebSocket hub (and any other subscriber).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (<-chan BusMessage, error)
}

// BusMessage is one message delivered by a SignalBus subscription.
type BusMessage struct {
	Channel string
	Payload []byte
}
