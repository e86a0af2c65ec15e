package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Listing is the sale state of one dynamic asset. At most one active listing
// exists per asset; relisting overwrites price and seller.
type Listing struct {
	Price  *big.Int
	Seller common.Address
	Active bool
}

// Asset is a uniquely owned dynamic asset whose metadata reference can be
// rewritten post-mint by the registry's oracle authority.
type Asset struct {
	ID          uint64
	Owner       common.Address
	MetadataRef string
	Listing     Listing
	MintedAt    time.Time
}

// MintedAsset links an external entrant to the asset minted for it. Persisted
// so a restarted oracle does not mint the same entrant twice.
type MintedAsset struct {
	EntrantID int
	AssetID   uint64
	Session   string
	MintedAt  time.Time
}
