package chain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/januslabs/janusd/internal/domain"
)

// Registry is the dynamic-asset ledger. Assets get sequential ids starting at
// zero; each carries an owner, a mutable metadata reference, and at most one
// active listing. Two authorities exist: the owner key mints and rotates the
// oracle authority, the oracle authority pushes metadata updates. Splitting
// them keeps the long-running oracle process on a key scoped to metadata
// pushes only.
type Registry struct {
	address common.Address
	owner   common.Address
	oracle  common.Address

	payment *Token
	assets  map[uint64]*domain.Asset
	nextID  uint64
}

// NewRegistry creates an asset registry settling purchases in payment.
func NewRegistry(address, owner, oracle common.Address, payment *Token) (*Registry, error) {
	if payment == nil {
		return nil, fmt.Errorf("registry: payment token: %w", domain.ErrInvalidAddress)
	}
	if oracle == (common.Address{}) {
		return nil, fmt.Errorf("registry: oracle authority: %w", domain.ErrInvalidAddress)
	}
	return &Registry{
		address: address,
		owner:   owner,
		oracle:  oracle,
		payment: payment,
		assets:  make(map[uint64]*domain.Asset),
	}, nil
}

// Owner returns the administrative owner.
func (r *Registry) Owner() common.Address { return r.owner }

// OracleAuthority returns the account allowed to push metadata updates.
func (r *Registry) OracleAuthority() common.Address { return r.oracle }

// NextAssetID returns the id the next mint will be assigned.
func (r *Registry) NextAssetID() uint64 { return r.nextID }

// Mint creates a new asset owned by to with the given metadata reference.
// Only the registry owner may mint.
func (r *Registry) Mint(caller, to common.Address, metadataRef string) (uint64, error) {
	if caller != r.owner {
		return 0, fmt.Errorf("mint: caller %s: %w", caller, domain.ErrUnauthorized)
	}
	if to == (common.Address{}) {
		return 0, fmt.Errorf("mint: recipient: %w", domain.ErrInvalidAddress)
	}

	id := r.nextID
	r.nextID++
	r.assets[id] = &domain.Asset{
		ID:          id,
		Owner:       to,
		MetadataRef: metadataRef,
		MintedAt:    time.Now().UTC(),
	}
	return id, nil
}

// List puts an asset up for sale at price. Only the current owner may list;
// relisting overwrites the previous price.
func (r *Registry) List(caller common.Address, assetID uint64, price *big.Int) error {
	a, ok := r.assets[assetID]
	if !ok {
		return fmt.Errorf("list asset %d: %w", assetID, domain.ErrNotFound)
	}
	if a.Owner != caller {
		return fmt.Errorf("list asset %d: caller %s: %w", assetID, caller, domain.ErrUnauthorized)
	}
	if price == nil || price.Sign() <= 0 {
		return fmt.Errorf("list asset %d: %w", assetID, domain.ErrInvalidPrice)
	}

	a.Listing = domain.Listing{
		Price:  new(big.Int).Set(price),
		Seller: caller,
		Active: true,
	}
	return nil
}

// Buy purchases an actively listed asset. The price moves from buyer to
// seller in the payment token (the buyer must have approved the registry);
// ownership transfers and the listing deactivates. Any payment failure
// aborts the whole call.
func (r *Registry) Buy(caller common.Address, assetID uint64) (*big.Int, error) {
	a, ok := r.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("buy asset %d: %w", assetID, domain.ErrNotFound)
	}
	if !a.Listing.Active {
		return nil, fmt.Errorf("buy asset %d: %w", assetID, domain.ErrNotForSale)
	}

	price := new(big.Int).Set(a.Listing.Price)
	if err := r.payment.TransferFrom(r.address, caller, a.Listing.Seller, price); err != nil {
		return nil, fmt.Errorf("buy asset %d: %w", assetID, err)
	}

	a.Owner = caller
	a.Listing = domain.Listing{}
	return price, nil
}

// UpdateMetadata overwrites an asset's metadata reference. Only the oracle
// authority may call it; listing state is irrelevant.
func (r *Registry) UpdateMetadata(caller common.Address, assetID uint64, newRef string) error {
	if caller != r.oracle {
		return fmt.Errorf("update metadata %d: caller %s: %w", assetID, caller, domain.ErrUnauthorized)
	}
	a, ok := r.assets[assetID]
	if !ok {
		return fmt.Errorf("update metadata %d: %w", assetID, domain.ErrNotFound)
	}
	a.MetadataRef = newRef
	return nil
}

// SetOracleAuthority rotates the oracle authority. Owner only; the new
// authority must be non-zero.
func (r *Registry) SetOracleAuthority(caller, newAuthority common.Address) (old common.Address, err error) {
	if caller != r.owner {
		return common.Address{}, fmt.Errorf("set oracle: caller %s: %w", caller, domain.ErrUnauthorized)
	}
	if newAuthority == (common.Address{}) {
		return common.Address{}, fmt.Errorf("set oracle: %w", domain.ErrInvalidAddress)
	}
	old = r.oracle
	r.oracle = newAuthority
	return old, nil
}

// Asset returns a copy of the asset with the given id.
func (r *Registry) Asset(assetID uint64) (domain.Asset, error) {
	a, ok := r.assets[assetID]
	if !ok {
		return domain.Asset{}, fmt.Errorf("asset %d: %w", assetID, domain.ErrNotFound)
	}
	cp := *a
	if a.Listing.Price != nil {
		cp.Listing.Price = new(big.Int).Set(a.Listing.Price)
	}
	return cp, nil
}

// OwnerOf returns the current owner of an asset.
func (r *Registry) OwnerOf(assetID uint64) (common.Address, error) {
	a, ok := r.assets[assetID]
	if !ok {
		return common.Address{}, fmt.Errorf("asset %d: %w", assetID, domain.ErrNotFound)
	}
	return a.Owner, nil
}

// TokenURI returns the current metadata reference of an asset.
func (r *Registry) TokenURI(assetID uint64) (string, error) {
	a, ok := r.assets[assetID]
	if !ok {
		return "", fmt.Errorf("asset %d: %w", assetID, domain.ErrNotFound)
	}
	return a.MetadataRef, nil
}

// Listing returns the listing state of an asset.
func (r *Registry) Listing(assetID uint64) (domain.Listing, error) {
	a, ok := r.assets[assetID]
	if !ok {
		return domain.Listing{}, fmt.Errorf("asset %d: %w", assetID, domain.ErrNotFound)
	}
	l := a.Listing
	if l.Price != nil {
		l.Price = new(big.Int).Set(l.Price)
	}
	return l, nil
}
