package chain

import (
	"context"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/januslabs/janusd/internal/domain"
)

var (
	testOwner  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testTrader = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testBuyer  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	n, err := NewNode(Config{
		Owner:           testOwner,
		OracleAuthority: testOwner,
		TokenName:       "McLaren Token",
		TokenSymbol:     "MCLAREN",
		StakeAmount:     tokens(10),
	}, nil, nil, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return n
}

// seedPool mints supply to the owner and fills the pool with 10 native /
// 10000 tokens.
func seedPool(t *testing.T, n *Node) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, n.MintTokens(testOwner, testOwner, tokens(1_000_000)))
	require.NoError(t, n.FundBase(testOwner, tokens(10)))
	require.NoError(t, n.Approve(testOwner, PoolAddress, tokens(10000)))
	require.NoError(t, n.AddLiquidity(ctx, testOwner, tokens(10), tokens(10000)))
}

func TestNewNodeRejectsZeroAddresses(t *testing.T) {
	_, err := NewNode(Config{OracleAuthority: testOwner, StakeAmount: tokens(10)},
		nil, nil, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = NewNode(Config{Owner: testOwner, StakeAmount: tokens(10)},
		nil, nil, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestMintTokensOwnerOnly(t *testing.T) {
	n := newTestNode(t)
	err := n.MintTokens(testTrader, testTrader, tokens(100))
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.Equal(t, 0, n.TokenBalanceOf(testTrader).Sign())
}

func TestSwapFlow(t *testing.T) {
	n := newTestNode(t)
	seedPool(t, n)
	ctx := context.Background()

	require.NoError(t, n.FundBase(testTrader, tokens(1)))
	out, err := n.Swap(ctx, testTrader, tokens(1), nil)
	require.NoError(t, err)

	expected, _ := new(big.Int).SetString("906610893880149131581", 10)
	require.Equal(t, expected, out)
	require.Equal(t, expected, n.TokenBalanceOf(testTrader))
	require.Equal(t, 0, n.BaseBalanceOf(testTrader).Sign())

	base, quote := n.Reserves()
	require.Equal(t, tokens(11), base)
	require.Equal(t, new(big.Int).Sub(tokens(10000), expected), quote)
}

func TestSwapInsufficientBalanceLeavesState(t *testing.T) {
	n := newTestNode(t)
	seedPool(t, n)

	_, err := n.Swap(context.Background(), testTrader, tokens(1), nil)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	base, quote := n.Reserves()
	require.Equal(t, tokens(10), base)
	require.Equal(t, tokens(10000), quote)
}

func TestQuoteMatchesSwap(t *testing.T) {
	n := newTestNode(t)
	seedPool(t, n)
	ctx := context.Background()

	quoted, err := n.Quote(tokens(1))
	require.NoError(t, err)

	require.NoError(t, n.FundBase(testTrader, tokens(1)))
	out, err := n.Swap(ctx, testTrader, tokens(1), quoted)
	require.NoError(t, err)
	require.Equal(t, quoted, out)
}

func TestAssetLifecycle(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	id, err := n.MintAsset(ctx, testOwner, testOwner, "ipfs://Qm1_Max_Verstappen_P0_Race")
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)

	_, err = n.MintAsset(ctx, testTrader, testTrader, "ipfs://QmX")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// Buying before listing is rejected.
	require.ErrorIs(t, n.BuyAsset(ctx, testBuyer, id), domain.ErrNotForSale)

	require.NoError(t, n.ListAsset(ctx, testOwner, id, tokens(50)))

	// Fund the buyer and approve the registry for the price.
	require.NoError(t, n.MintTokens(testOwner, testBuyer, tokens(100)))
	require.NoError(t, n.Approve(testBuyer, RegistryAddress, tokens(50)))
	require.NoError(t, n.BuyAsset(ctx, testBuyer, id))

	a, err := n.Asset(id)
	require.NoError(t, err)
	require.Equal(t, testBuyer, a.Owner)
	require.False(t, a.Listing.Active, "purchase must deactivate the listing")
	require.Equal(t, tokens(50), n.TokenBalanceOf(testBuyer))
	require.Equal(t, tokens(50), n.TokenBalanceOf(testOwner))
}

func TestBuyAssetWithoutAllowanceIsAtomic(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	id, err := n.MintAsset(ctx, testOwner, testOwner, "ipfs://Qm4_Lando_Norris_P0_Race")
	require.NoError(t, err)
	require.NoError(t, n.ListAsset(ctx, testOwner, id, tokens(50)))
	require.NoError(t, n.MintTokens(testOwner, testBuyer, tokens(100)))

	err = n.BuyAsset(ctx, testBuyer, id)
	require.ErrorIs(t, err, domain.ErrInsufficientAllowance)

	a, err := n.Asset(id)
	require.NoError(t, err)
	require.Equal(t, testOwner, a.Owner, "failed purchase must not transfer ownership")
	require.True(t, a.Listing.Active)
}

func TestUpdateAssetMetadataOracleOnly(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	id, err := n.MintAsset(ctx, testOwner, testOwner, "ipfs://Qm1_Max_Verstappen_P0_Race")
	require.NoError(t, err)

	require.ErrorIs(t,
		n.UpdateAssetMetadata(ctx, testTrader, id, "ipfs://tampered"),
		domain.ErrUnauthorized)

	require.NoError(t, n.UpdateAssetMetadata(ctx, testOwner, id, "ipfs://QmUpdated_1_Max_Verstappen_Winner_1"))
	a, err := n.Asset(id)
	require.NoError(t, err)
	require.Equal(t, "ipfs://QmUpdated_1_Max_Verstappen_Winner_1", a.MetadataRef)

	// Re-applying the same reference is a no-op, not an error.
	require.NoError(t, n.UpdateAssetMetadata(ctx, testOwner, id, "ipfs://QmUpdated_1_Max_Verstappen_Winner_1"))
	a, err = n.Asset(id)
	require.NoError(t, err)
	require.Equal(t, "ipfs://QmUpdated_1_Max_Verstappen_Winner_1", a.MetadataRef)
}

func TestSetOracleAuthority(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	id, err := n.MintAsset(ctx, testOwner, testOwner, "ipfs://Qm1")
	require.NoError(t, err)

	require.ErrorIs(t,
		n.SetOracleAuthority(ctx, testTrader, testTrader),
		domain.ErrUnauthorized)
	require.NoError(t, n.SetOracleAuthority(ctx, testOwner, testTrader))

	// Old authority loses metadata rights; the new one gains them.
	require.ErrorIs(t,
		n.UpdateAssetMetadata(ctx, testOwner, id, "ipfs://new"),
		domain.ErrUnauthorized)
	require.NoError(t, n.UpdateAssetMetadata(ctx, testTrader, id, "ipfs://new"))
}

func TestMarketLifecycle(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	id, err := n.CreateMarket(ctx, testOwner, "Verstappen wins the race", 1, domain.PredicateWins)
	require.NoError(t, err)

	_, err = n.CreateMarket(ctx, testTrader, "nope", 1, domain.PredicateWins)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = n.CreateMarket(ctx, testOwner, "bad predicate", 1, domain.PredicateKind("fastest_lap"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	// Fund two stakers and approve the market for the fixed stake.
	for _, addr := range []common.Address{testTrader, testBuyer} {
		require.NoError(t, n.MintTokens(testOwner, addr, tokens(100)))
		require.NoError(t, n.Approve(addr, MarketAddress, tokens(100)))
	}

	require.NoError(t, n.PlaceStake(ctx, testTrader, id, true))
	require.NoError(t, n.PlaceStake(ctx, testBuyer, id, false))

	// A recorded side never flips.
	require.ErrorIs(t, n.PlaceStake(ctx, testTrader, id, false), domain.ErrSideMismatch)

	// Same side accumulates.
	require.NoError(t, n.PlaceStake(ctx, testTrader, id, true))

	m, err := n.GetMarket(id)
	require.NoError(t, err)
	require.Equal(t, tokens(20), m.YesPool)
	require.Equal(t, tokens(10), m.NoPool)

	_, err = n.ClaimWinnings(ctx, testTrader, id)
	require.ErrorIs(t, err, domain.ErrNotResolved)

	require.ErrorIs(t,
		n.ResolveMarket(ctx, testTrader, id, true),
		domain.ErrUnauthorized)
	require.NoError(t, n.ResolveMarket(ctx, testOwner, id, true))
	require.ErrorIs(t,
		n.ResolveMarket(ctx, testOwner, id, true),
		domain.ErrAlreadyResolved)

	// No staking after resolution.
	require.ErrorIs(t, n.PlaceStake(ctx, testBuyer, id, false), domain.ErrMarketClosed)

	// The sole yes-staker takes the whole no pool on top of their principal.
	payout, err := n.ClaimWinnings(ctx, testTrader, id)
	require.NoError(t, err)
	require.Equal(t, tokens(30), payout)
	require.Equal(t, tokens(110), n.TokenBalanceOf(testTrader))

	_, err = n.ClaimWinnings(ctx, testTrader, id)
	require.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	_, err = n.ClaimWinnings(ctx, testBuyer, id)
	require.ErrorIs(t, err, domain.ErrWrongPrediction)
}

func TestEqualStakesDoublePayout(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	id, err := n.CreateMarket(ctx, testOwner, "Norris podium", 4, domain.PredicatePodium)
	require.NoError(t, err)

	for _, addr := range []common.Address{testTrader, testBuyer} {
		require.NoError(t, n.MintTokens(testOwner, addr, tokens(10)))
		require.NoError(t, n.Approve(addr, MarketAddress, tokens(10)))
	}
	require.NoError(t, n.PlaceStake(ctx, testTrader, id, true))
	require.NoError(t, n.PlaceStake(ctx, testBuyer, id, false))
	require.NoError(t, n.ResolveMarket(ctx, testOwner, id, false))

	payout, err := n.ClaimWinnings(ctx, testBuyer, id)
	require.NoError(t, err)
	require.Equal(t, tokens(20), payout, "winner takes principal plus the whole losing pool")

	// Token conservation: the market book ends flat.
	require.Equal(t, 0, n.TokenBalanceOf(MarketAddress).Sign())
}

func TestStakeWithoutFundsRejected(t *testing.T) {
	n := newTestNode(t)
	ctx := context.Background()

	id, err := n.CreateMarket(ctx, testOwner, "Hamilton top ten", 44, domain.PredicateTopTen)
	require.NoError(t, err)

	require.NoError(t, n.Approve(testTrader, MarketAddress, tokens(10)))
	err = n.PlaceStake(ctx, testTrader, id, true)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	m, err := n.GetMarket(id)
	require.NoError(t, err)
	require.Equal(t, 0, m.YesPool.Sign(), "failed stake must not grow the pool")
}
