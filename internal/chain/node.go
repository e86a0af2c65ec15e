package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/januslabs/janusd/internal/domain"
)

// Config holds the parameters the node is deployed with.
type Config struct {
	// Owner holds the administrative role on the registry and market book
	// (mint, create market, rotate oracle authority).
	Owner common.Address
	// OracleAuthority may push metadata updates and resolve markets.
	OracleAuthority common.Address

	TokenName   string
	TokenSymbol string
	// StakeAmount is the fixed per-stake token amount of the market book.
	StakeAmount *big.Int
}

// Node owns the four ledger engines and serializes every call behind one
// writer lock, the way a chain serializes transactions: each operation is
// atomic and no partial state is ever observable. Mutations are assigned a tx
// hash and published as events on the signal bus.
type Node struct {
	mu sync.RWMutex

	owner  common.Address
	oracle common.Address

	token    *Token
	pool     *Pool
	registry *Registry
	book     *MarketBook

	// base is the native-asset ledger.
	base map[common.Address]*big.Int
	seq  uint64

	bus    domain.SignalBus
	prices domain.PriceCache
	logger *slog.Logger
}

// Engine addresses are derived from fixed labels, so they are stable across
// restarts.
var (
	PoolAddress     = contractAddress("pool")
	RegistryAddress = contractAddress("registry")
	MarketAddress   = contractAddress("market")
)

func contractAddress(label string) common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256([]byte("janusd/" + label))[12:])
}

// NewNode deploys the engines. bus and prices may be nil; events and price
// caching are then skipped.
func NewNode(cfg Config, bus domain.SignalBus, prices domain.PriceCache, logger *slog.Logger) (*Node, error) {
	if cfg.Owner == (common.Address{}) {
		return nil, fmt.Errorf("node: owner: %w", domain.ErrInvalidAddress)
	}
	if cfg.OracleAuthority == (common.Address{}) {
		return nil, fmt.Errorf("node: oracle authority: %w", domain.ErrInvalidAddress)
	}

	token := NewToken(cfg.TokenName, cfg.TokenSymbol)
	registry, err := NewRegistry(RegistryAddress, cfg.Owner, cfg.OracleAuthority, token)
	if err != nil {
		return nil, err
	}
	book, err := NewMarketBook(MarketAddress, cfg.Owner, cfg.OracleAuthority, token, cfg.StakeAmount)
	if err != nil {
		return nil, err
	}

	return &Node{
		owner:    cfg.Owner,
		oracle:   cfg.OracleAuthority,
		token:    token,
		pool:     NewPool(),
		registry: registry,
		book:     book,
		base:     make(map[common.Address]*big.Int),
		bus:      bus,
		prices:   prices,
		logger:   logger.With(slog.String("component", "node")),
	}, nil
}

// Owner returns the administrative owner address.
func (n *Node) Owner() common.Address { return n.owner }

// txHash derives a deterministic hash for the next transaction.
func (n *Node) txHash(kind domain.EventKind, caller common.Address) string {
	n.seq++
	return ethcrypto.Keccak256Hash(
		[]byte("janusd|" + string(kind) + "|" + caller.Hex() + "|" + strconv.FormatUint(n.seq, 10)),
	).Hex()
}

// publish sends an event on the bus, best effort. A bus failure never fails
// the chain call that produced the event.
func (n *Node) publish(ctx context.Context, ev domain.Event) {
	if n.bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.WarnContext(ctx, "marshal event", slog.String("error", err.Error()))
		return
	}
	if err := n.bus.Publish(ctx, ev.Channel(), payload); err != nil {
		n.logger.WarnContext(ctx, "publish event",
			slog.String("kind", string(ev.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (n *Node) cachePrice(ctx context.Context) {
	if n.prices == nil {
		return
	}
	pair := n.token.Symbol() + "-BASE"
	if err := n.prices.SetPrice(ctx, pair, n.pool.Price(), time.Now().UTC()); err != nil {
		n.logger.WarnContext(ctx, "cache price", slog.String("error", err.Error()))
	}
}

// ---------------------------------------------------------------------------
// Native asset
// ---------------------------------------------------------------------------

// FundBase credits the native-asset balance of addr. Demo faucet; on a real
// chain this is the account's funded balance.
func (n *Node) FundBase(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("fund base: %w", domain.ErrInvalidInput)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.creditBase(addr, amount)
	return nil
}

// BaseBalanceOf returns addr's native-asset balance.
func (n *Node) BaseBalanceOf(addr common.Address) *big.Int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if b, ok := n.base[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (n *Node) creditBase(addr common.Address, amount *big.Int) {
	if b, ok := n.base[addr]; ok {
		b.Add(b, amount)
		return
	}
	n.base[addr] = new(big.Int).Set(amount)
}

func (n *Node) debitBase(addr common.Address, amount *big.Int) error {
	b, ok := n.base[addr]
	if !ok || b.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	b.Sub(b, amount)
	return nil
}

// ---------------------------------------------------------------------------
// Token
// ---------------------------------------------------------------------------

// MintTokens creates token supply. Owner only.
func (n *Node) MintTokens(caller, to common.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if caller != n.owner {
		return fmt.Errorf("mint tokens: %w", domain.ErrUnauthorized)
	}
	return n.token.Mint(to, amount)
}

// Approve sets the caller's token allowance for spender.
func (n *Node) Approve(caller, spender common.Address, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token.Approve(caller, spender, amount)
}

// TokenBalanceOf returns addr's token balance.
func (n *Node) TokenBalanceOf(addr common.Address) *big.Int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.token.BalanceOf(addr)
}

// TokenSymbol returns the payment token's symbol.
func (n *Node) TokenSymbol() string { return n.token.Symbol() }

// ---------------------------------------------------------------------------
// Pool
// ---------------------------------------------------------------------------

// AddLiquidity moves baseAmount of the caller's native balance and
// quoteAmount of the caller's tokens (approved to the pool) into the
// reserves.
func (n *Node) AddLiquidity(ctx context.Context, caller common.Address, baseAmount, quoteAmount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if baseAmount == nil || baseAmount.Sign() <= 0 || quoteAmount == nil || quoteAmount.Sign() <= 0 {
		return fmt.Errorf("add liquidity: %w", domain.ErrInvalidInput)
	}
	if err := n.debitBase(caller, baseAmount); err != nil {
		return fmt.Errorf("add liquidity: %w", err)
	}
	if err := n.token.TransferFrom(PoolAddress, caller, PoolAddress, quoteAmount); err != nil {
		// Undo the base debit so the call leaves no partial state.
		n.creditBase(caller, baseAmount)
		return fmt.Errorf("add liquidity: %w", err)
	}
	n.creditBase(PoolAddress, baseAmount)
	if err := n.pool.AddLiquidity(baseAmount, quoteAmount); err != nil {
		return err
	}

	n.cachePrice(ctx)
	n.publish(ctx, domain.Event{
		Kind:      domain.EventLiquidityAdded,
		TxHash:    n.txHash(domain.EventLiquidityAdded, caller),
		Caller:    caller,
		AmountIn:  domain.BigString(baseAmount),
		AmountOut: domain.BigString(quoteAmount),
		At:        time.Now().UTC(),
	})
	return nil
}

// Swap swaps baseAmount of the caller's native balance for tokens, enforcing
// minAmountOut.
func (n *Node) Swap(ctx context.Context, caller common.Address, baseAmount, minAmountOut *big.Int) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if baseAmount == nil || baseAmount.Sign() <= 0 {
		return nil, fmt.Errorf("swap: %w", domain.ErrInvalidInput)
	}
	if err := n.debitBase(caller, baseAmount); err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}
	amountOut, err := n.pool.SwapBaseForQuote(baseAmount, minAmountOut)
	if err != nil {
		n.creditBase(caller, baseAmount)
		return nil, err
	}
	n.creditBase(PoolAddress, baseAmount)
	if err := n.token.Transfer(PoolAddress, caller, amountOut); err != nil {
		// Unreachable while the reserves mirror the pool's token balance;
		// keep the call atomic regardless.
		return nil, fmt.Errorf("swap: %w", err)
	}

	n.cachePrice(ctx)
	n.publish(ctx, domain.Event{
		Kind:      domain.EventSwap,
		TxHash:    n.txHash(domain.EventSwap, caller),
		Caller:    caller,
		AmountIn:  domain.BigString(baseAmount),
		AmountOut: domain.BigString(amountOut),
		At:        time.Now().UTC(),
	})
	return amountOut, nil
}

// Quote computes the current swap output for amountIn without mutating state.
func (n *Node) Quote(amountIn *big.Int) (*big.Int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return GetAmountOut(amountIn, n.pool.reserveBase, n.pool.reserveQuote)
}

// Reserves returns the current pool reserves.
func (n *Node) Reserves() (base, quote *big.Int) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pool.ReserveBase(), n.pool.ReserveQuote()
}

// Price returns the 1e18-scaled token-per-native spot price.
func (n *Node) Price() *big.Int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pool.Price()
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// MintAsset mints a new dynamic asset. Registry owner only.
func (n *Node) MintAsset(ctx context.Context, caller, to common.Address, metadataRef string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id, err := n.registry.Mint(caller, to, metadataRef)
	if err != nil {
		return 0, err
	}
	n.publish(ctx, domain.Event{
		Kind:     domain.EventAssetMinted,
		TxHash:   n.txHash(domain.EventAssetMinted, caller),
		Caller:   caller,
		AssetID:  &id,
		Metadata: metadataRef,
		At:       time.Now().UTC(),
	})
	return id, nil
}

// ListAsset lists an asset for sale.
func (n *Node) ListAsset(ctx context.Context, caller common.Address, assetID uint64, price *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.registry.List(caller, assetID, price); err != nil {
		return err
	}
	n.publish(ctx, domain.Event{
		Kind:     domain.EventAssetListed,
		TxHash:   n.txHash(domain.EventAssetListed, caller),
		Caller:   caller,
		AssetID:  &assetID,
		AmountIn: domain.BigString(price),
		At:       time.Now().UTC(),
	})
	return nil
}

// BuyAsset purchases a listed asset.
func (n *Node) BuyAsset(ctx context.Context, caller common.Address, assetID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	price, err := n.registry.Buy(caller, assetID)
	if err != nil {
		return err
	}
	n.publish(ctx, domain.Event{
		Kind:     domain.EventAssetSold,
		TxHash:   n.txHash(domain.EventAssetSold, caller),
		Caller:   caller,
		AssetID:  &assetID,
		AmountIn: domain.BigString(price),
		At:       time.Now().UTC(),
	})
	return nil
}

// UpdateAssetMetadata rewrites an asset's metadata reference. Oracle
// authority only.
func (n *Node) UpdateAssetMetadata(ctx context.Context, caller common.Address, assetID uint64, newRef string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.registry.UpdateMetadata(caller, assetID, newRef); err != nil {
		return err
	}
	n.publish(ctx, domain.Event{
		Kind:     domain.EventMetadataUpdated,
		TxHash:   n.txHash(domain.EventMetadataUpdated, caller),
		Caller:   caller,
		AssetID:  &assetID,
		Metadata: newRef,
		At:       time.Now().UTC(),
	})
	return nil
}

// SetOracleAuthority rotates the oracle authority on both the registry and
// the market book. Owner only.
func (n *Node) SetOracleAuthority(ctx context.Context, caller, newAuthority common.Address) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	old, err := n.registry.SetOracleAuthority(caller, newAuthority)
	if err != nil {
		return err
	}
	n.book.oracle = newAuthority
	n.oracle = newAuthority
	n.publish(ctx, domain.Event{
		Kind:     domain.EventOracleChanged,
		TxHash:   n.txHash(domain.EventOracleChanged, caller),
		Caller:   caller,
		Metadata: old.Hex() + "->" + newAuthority.Hex(),
		At:       time.Now().UTC(),
	})
	return nil
}

// Asset returns the asset with the given id.
func (n *Node) Asset(assetID uint64) (domain.Asset, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.registry.Asset(assetID)
}

// Assets returns all minted assets in id order.
func (n *Node) Assets() []domain.Asset {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]domain.Asset, 0, n.registry.NextAssetID())
	for id := uint64(0); id < n.registry.NextAssetID(); id++ {
		if a, err := n.registry.Asset(id); err == nil {
			out = append(out, a)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Prediction markets
// ---------------------------------------------------------------------------

// CreateMarket opens a market. Owner only.
func (n *Node) CreateMarket(ctx context.Context, caller common.Address, description string, subjectEntrant int, predicate domain.PredicateKind) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id, err := n.book.CreateMarket(caller, description, subjectEntrant, predicate)
	if err != nil {
		return 0, err
	}
	n.publish(ctx, domain.Event{
		Kind:     domain.EventMarketCreated,
		TxHash:   n.txHash(domain.EventMarketCreated, caller),
		Caller:   caller,
		MarketID: &id,
		Metadata: description,
		At:       time.Now().UTC(),
	})
	return id, nil
}

// PlaceStake stakes the fixed amount on a market side.
func (n *Node) PlaceStake(ctx context.Context, caller common.Address, marketID uint64, side bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.book.PlaceStake(caller, marketID, side); err != nil {
		return err
	}
	n.publish(ctx, domain.Event{
		Kind:     domain.EventStakePlaced,
		TxHash:   n.txHash(domain.EventStakePlaced, caller),
		Caller:   caller,
		MarketID: &marketID,
		AmountIn: domain.BigString(n.book.StakeAmount()),
		Outcome:  &side,
		At:       time.Now().UTC(),
	})
	return nil
}

// ResolveMarket fixes a market outcome. Oracle authority only.
func (n *Node) ResolveMarket(ctx context.Context, caller common.Address, marketID uint64, outcome bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.book.Resolve(caller, marketID, outcome); err != nil {
		return err
	}
	n.publish(ctx, domain.Event{
		Kind:     domain.EventMarketResolved,
		TxHash:   n.txHash(domain.EventMarketResolved, caller),
		Caller:   caller,
		MarketID: &marketID,
		Outcome:  &outcome,
		At:       time.Now().UTC(),
	})
	return nil
}

// ClaimWinnings pays out the caller's winnings.
func (n *Node) ClaimWinnings(ctx context.Context, caller common.Address, marketID uint64) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.book.Claim(caller, marketID)
}

// GetMarket returns the market with the given id.
func (n *Node) GetMarket(marketID uint64) (domain.Market, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.book.Market(marketID)
}

// Markets returns all markets in id order.
func (n *Node) Markets() []domain.Market {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]domain.Market, 0, n.book.NextMarketID())
	for id := uint64(0); id < n.book.NextMarketID(); id++ {
		if m, err := n.book.Market(id); err == nil {
			out = append(out, m)
		}
	}
	return out
}
