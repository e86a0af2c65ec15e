package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// RegistryWriter is the slice of the asset registry the settlement loop
// drives. Submissions are atomic: they either apply fully or fail with a
// typed error and no state change.
type RegistryWriter interface {
	Mint(ctx context.Context, to common.Address, metadataRef string) (uint64, error)
	UpdateMetadata(ctx context.Context, assetID uint64, newRef string) error
}

// MarketWriter is the slice of the prediction market the settlement loop
// drives.
type MarketWriter interface {
	Resolve(ctx context.Context, marketID uint64, outcome bool) error
}

// MarketReader exposes read access to markets for resolution scanning.
type MarketReader interface {
	NextMarketID(ctx context.Context) (uint64, error)
	Market(ctx context.Context, id uint64) (Market, error)
}

// ChainClient is everything the settlement loop needs from the chain node.
// The in-process node implements it directly; tests substitute a fake that
// can inject nonce-class failures.
type ChainClient interface {
	RegistryWriter
	MarketWriter
	MarketReader
	// OracleAddress is the identity the client submits calls as.
	OracleAddress() common.Address
}
