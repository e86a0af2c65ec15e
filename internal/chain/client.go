package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/januslabs/janusd/internal/domain"
)

// Client submits calls to an in-process Node as a fixed signing identity. It
// implements domain.ChainClient for the settlement loop.
type Client struct {
	node *Node
	from common.Address
}

// NewClient creates a client submitting as from.
func NewClient(node *Node, from common.Address) *Client {
	return &Client{node: node, from: from}
}

// OracleAddress returns the submitting identity.
func (c *Client) OracleAddress() common.Address { return c.from }

// Mint mints a dynamic asset for to.
func (c *Client) Mint(ctx context.Context, to common.Address, metadataRef string) (uint64, error) {
	return c.node.MintAsset(ctx, c.from, to, metadataRef)
}

// UpdateMetadata rewrites an asset's metadata reference.
func (c *Client) UpdateMetadata(ctx context.Context, assetID uint64, newRef string) error {
	return c.node.UpdateAssetMetadata(ctx, c.from, assetID, newRef)
}

// Resolve fixes a market outcome.
func (c *Client) Resolve(ctx context.Context, marketID uint64, outcome bool) error {
	return c.node.ResolveMarket(ctx, c.from, marketID, outcome)
}

// NextMarketID returns the id the next market will be assigned.
func (c *Client) NextMarketID(ctx context.Context) (uint64, error) {
	c.node.mu.RLock()
	defer c.node.mu.RUnlock()
	return c.node.book.NextMarketID(), nil
}

// Market returns the market with the given id.
func (c *Client) Market(ctx context.Context, id uint64) (domain.Market, error) {
	return c.node.GetMarket(id)
}

var _ domain.ChainClient = (*Client)(nil)
