package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event channel names used on the signal bus and the WebSocket stream.
const (
	ChannelSwap      = "swap"
	ChannelLiquidity = "liquidity"
	ChannelAssets    = "assets"
	ChannelMarkets   = "markets"
)

// EventKind identifies a chain event type.
type EventKind string

const (
	EventSwap            EventKind = "swap"
	EventLiquidityAdded  EventKind = "liquidity_added"
	EventAssetMinted     EventKind = "asset_minted"
	EventAssetListed     EventKind = "asset_listed"
	EventAssetSold       EventKind = "asset_sold"
	EventMetadataUpdated EventKind = "metadata_updated"
	EventOracleChanged   EventKind = "oracle_changed"
	EventMarketCreated   EventKind = "market_created"
	EventStakePlaced     EventKind = "stake_placed"
	EventMarketResolved  EventKind = "market_resolved"
)

// Event is one chain event as published on the signal bus. Amounts are
// decimal strings so browser clients never lose precision.
type Event struct {
	Kind      EventKind      `json:"kind"`
	TxHash    string         `json:"tx_hash"`
	Caller    common.Address `json:"caller"`
	AssetID   *uint64        `json:"asset_id,omitempty"`
	MarketID  *uint64        `json:"market_id,omitempty"`
	AmountIn  string         `json:"amount_in,omitempty"`
	AmountOut string         `json:"amount_out,omitempty"`
	Metadata  string         `json:"metadata,omitempty"`
	Outcome   *bool          `json:"outcome,omitempty"`
	At        time.Time      `json:"at"`
}

// Channel returns the signal-bus channel this event belongs on.
func (e Event) Channel() string {
	switch e.Kind {
	case EventSwap:
		return ChannelSwap
	case EventLiquidityAdded:
		return ChannelLiquidity
	case EventAssetMinted, EventAssetListed, EventAssetSold, EventMetadataUpdated, EventOracleChanged:
		return ChannelAssets
	default:
		return ChannelMarkets
	}
}

// BigString formats a big.Int for event payloads, mapping nil to "0".
func BigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
