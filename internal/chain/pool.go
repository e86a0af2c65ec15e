package chain

import (
	"fmt"
	"math/big"

	"github.com/januslabs/janusd/internal/domain"
)

// Swap fee: effective input is amountIn * 997 / 1000.
var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)

	// priceScale is the fixed-point scale for spot prices (1e18).
	priceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// Pool is a constant-product pool holding a native-asset reserve and a
// team-token reserve. It is a simplified single-depositor pool: liquidity only
// accumulates, no LP shares are issued and no withdrawal is modeled.
type Pool struct {
	reserveBase  *big.Int
	reserveQuote *big.Int
}

// NewPool creates a pool with empty reserves. The first liquidity addition
// establishes the initial price ratio.
func NewPool() *Pool {
	return &Pool{
		reserveBase:  new(big.Int),
		reserveQuote: new(big.Int),
	}
}

// ReserveBase returns the native-asset reserve.
func (p *Pool) ReserveBase() *big.Int { return new(big.Int).Set(p.reserveBase) }

// ReserveQuote returns the token reserve.
func (p *Pool) ReserveQuote() *big.Int { return new(big.Int).Set(p.reserveQuote) }

// AddLiquidity grows both reserves. Both amounts must be positive.
func (p *Pool) AddLiquidity(baseAmount, quoteAmount *big.Int) error {
	if baseAmount == nil || baseAmount.Sign() <= 0 {
		return fmt.Errorf("add liquidity: base amount: %w", domain.ErrInvalidInput)
	}
	if quoteAmount == nil || quoteAmount.Sign() <= 0 {
		return fmt.Errorf("add liquidity: quote amount: %w", domain.ErrInvalidInput)
	}
	p.reserveBase.Add(p.reserveBase, baseAmount)
	p.reserveQuote.Add(p.reserveQuote, quoteAmount)
	return nil
}

// GetAmountOut computes the constant-product output for amountIn against the
// given reserves with the 0.3% fee folded into the effective input. Pure; it
// reads no pool state. Integer arithmetic truncates toward zero.
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 ||
		reserveIn == nil || reserveIn.Sign() <= 0 ||
		reserveOut == nil || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("get amount out: %w", domain.ErrInvalidInput)
	}

	effective := new(big.Int).Mul(amountIn, feeNumerator)
	effective.Div(effective, feeDenominator)

	numerator := new(big.Int).Mul(effective, reserveOut)
	denominator := new(big.Int).Add(reserveIn, effective)
	return numerator.Div(numerator, denominator), nil
}

// SwapBaseForQuote swaps baseAmount of the native asset for tokens, enforcing
// the caller's minimum output. Reserves are updated only when the whole swap
// succeeds.
func (p *Pool) SwapBaseForQuote(baseAmount, minAmountOut *big.Int) (*big.Int, error) {
	if baseAmount == nil || baseAmount.Sign() <= 0 {
		return nil, fmt.Errorf("swap: %w", domain.ErrInvalidInput)
	}
	amountOut, err := GetAmountOut(baseAmount, p.reserveBase, p.reserveQuote)
	if err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}
	if minAmountOut != nil && amountOut.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("swap: out %s < min %s: %w",
			amountOut, minAmountOut, domain.ErrSlippageExceeded)
	}

	p.reserveBase.Add(p.reserveBase, baseAmount)
	p.reserveQuote.Sub(p.reserveQuote, amountOut)
	return amountOut, nil
}

// Price returns the token-per-native spot price scaled by 1e18, or zero when
// the pool holds no native reserve.
func (p *Pool) Price() *big.Int {
	if p.reserveBase.Sign() == 0 {
		return new(big.Int)
	}
	price := new(big.Int).Mul(p.reserveQuote, priceScale)
	return price.Div(price, p.reserveBase)
}
