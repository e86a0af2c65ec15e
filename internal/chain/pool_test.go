package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/januslabs/janusd/internal/domain"
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), priceScale)
}

func TestGetAmountOutKnownValue(t *testing.T) {
	// 1 native into a 10 native / 10000 token pool, 0.3% fee.
	out, err := GetAmountOut(tokens(1), tokens(10), tokens(10000))
	require.NoError(t, err)

	expected, ok := new(big.Int).SetString("906610893880149131581", 10)
	require.True(t, ok)
	require.Equal(t, expected, out)
}

func TestGetAmountOutRejectsBadInputs(t *testing.T) {
	_, err := GetAmountOut(nil, tokens(10), tokens(10000))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = GetAmountOut(big.NewInt(0), tokens(10), tokens(10000))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = GetAmountOut(tokens(1), big.NewInt(0), tokens(10000))
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = GetAmountOut(tokens(1), tokens(10), big.NewInt(0))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGetAmountOutMonotonic(t *testing.T) {
	reserveIn, reserveOut := tokens(10), tokens(10000)

	small, err := GetAmountOut(tokens(1), reserveIn, reserveOut)
	require.NoError(t, err)
	large, err := GetAmountOut(tokens(2), reserveIn, reserveOut)
	require.NoError(t, err)

	require.Equal(t, 1, large.Cmp(small), "larger input must yield larger output")
	require.Equal(t, -1, large.Cmp(reserveOut), "output can never drain the reserve")
}

func TestSwapGrowsInvariant(t *testing.T) {
	p := NewPool()
	require.NoError(t, p.AddLiquidity(tokens(10), tokens(10000)))

	before := new(big.Int).Mul(p.ReserveBase(), p.ReserveQuote())

	out, err := p.SwapBaseForQuote(tokens(1), nil)
	require.NoError(t, err)
	require.Equal(t, 1, out.Sign())

	after := new(big.Int).Mul(p.ReserveBase(), p.ReserveQuote())
	require.True(t, after.Cmp(before) >= 0, "fee must not shrink the product")
}

func TestSwapEnforcesMinAmountOut(t *testing.T) {
	p := NewPool()
	require.NoError(t, p.AddLiquidity(tokens(10), tokens(10000)))

	baseBefore, quoteBefore := p.ReserveBase(), p.ReserveQuote()

	_, err := p.SwapBaseForQuote(tokens(1), tokens(1000))
	require.ErrorIs(t, err, domain.ErrSlippageExceeded)

	require.Equal(t, baseBefore, p.ReserveBase(), "failed swap must not touch reserves")
	require.Equal(t, quoteBefore, p.ReserveQuote())
}

func TestSwapOnEmptyPool(t *testing.T) {
	p := NewPool()
	_, err := p.SwapBaseForQuote(tokens(1), nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPrice(t *testing.T) {
	p := NewPool()
	require.Equal(t, 0, p.Price().Sign(), "empty pool has no price")

	require.NoError(t, p.AddLiquidity(tokens(10), tokens(10000)))
	require.Equal(t, tokens(1000), p.Price())

	// Buying tokens moves the price up.
	_, err := p.SwapBaseForQuote(tokens(1), nil)
	require.NoError(t, err)
	require.Equal(t, -1, p.Price().Cmp(tokens(1000)))
}

func TestAddLiquidityRejectsNonPositive(t *testing.T) {
	p := NewPool()
	require.ErrorIs(t, p.AddLiquidity(big.NewInt(0), tokens(1)), domain.ErrInvalidInput)
	require.ErrorIs(t, p.AddLiquidity(tokens(1), nil), domain.ErrInvalidInput)
}
