package chain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/januslabs/janusd/internal/domain"
)

// MarketBook is the binary prediction-market ledger. Every stake is the same
// fixed token amount; stakers pick a side, pools accumulate until the oracle
// authority resolves the market, and winners claim their principal plus a
// proportional share of the losing pool.
//
// A staker may stake repeatedly on the same side; a stake on the opposite
// side is rejected rather than netted, so a recorded side never flips.
type MarketBook struct {
	address common.Address
	owner   common.Address
	oracle  common.Address

	payment     *Token
	stakeAmount *big.Int

	markets map[uint64]*domain.Market
	stakes  map[uint64]map[common.Address]*domain.Stake
	nextID  uint64
}

// NewMarketBook creates a prediction-market ledger settling in payment with
// the given fixed per-stake amount.
func NewMarketBook(address, owner, oracle common.Address, payment *Token, stakeAmount *big.Int) (*MarketBook, error) {
	if payment == nil {
		return nil, fmt.Errorf("market book: payment token: %w", domain.ErrInvalidAddress)
	}
	if oracle == (common.Address{}) {
		return nil, fmt.Errorf("market book: oracle authority: %w", domain.ErrInvalidAddress)
	}
	if stakeAmount == nil || stakeAmount.Sign() <= 0 {
		return nil, fmt.Errorf("market book: stake amount: %w", domain.ErrInvalidInput)
	}
	return &MarketBook{
		address:     address,
		owner:       owner,
		oracle:      oracle,
		payment:     payment,
		stakeAmount: new(big.Int).Set(stakeAmount),
		markets:     make(map[uint64]*domain.Market),
		stakes:      make(map[uint64]map[common.Address]*domain.Stake),
	}, nil
}

// StakeAmount returns the fixed per-stake token amount.
func (b *MarketBook) StakeAmount() *big.Int { return new(big.Int).Set(b.stakeAmount) }

// NextMarketID returns the id the next market will be assigned.
func (b *MarketBook) NextMarketID() uint64 { return b.nextID }

// CreateMarket opens a market about subjectEntrant under the given predicate.
// Only the market owner may create markets.
func (b *MarketBook) CreateMarket(caller common.Address, description string, subjectEntrant int, predicate domain.PredicateKind) (uint64, error) {
	if caller != b.owner {
		return 0, fmt.Errorf("create market: caller %s: %w", caller, domain.ErrUnauthorized)
	}
	if !predicate.Valid() {
		return 0, fmt.Errorf("create market: predicate %q: %w", predicate, domain.ErrInvalidInput)
	}

	id := b.nextID
	b.nextID++
	b.markets[id] = &domain.Market{
		ID:             id,
		Description:    description,
		SubjectEntrant: subjectEntrant,
		Predicate:      predicate,
		YesPool:        new(big.Int),
		NoPool:         new(big.Int),
		CreatedAt:      time.Now().UTC(),
	}
	b.stakes[id] = make(map[common.Address]*domain.Stake)
	return id, nil
}

// PlaceStake stakes the fixed amount on side. The staker must have approved
// the market for at least the stake amount; the transfer and the pool update
// apply as one step.
func (b *MarketBook) PlaceStake(caller common.Address, marketID uint64, side bool) error {
	m, ok := b.markets[marketID]
	if !ok {
		return fmt.Errorf("stake market %d: %w", marketID, domain.ErrNotFound)
	}
	if m.Resolved {
		return fmt.Errorf("stake market %d: %w", marketID, domain.ErrMarketClosed)
	}

	existing := b.stakes[marketID][caller]
	if existing != nil && existing.Side != side {
		return fmt.Errorf("stake market %d: recorded side differs: %w", marketID, domain.ErrSideMismatch)
	}

	if err := b.payment.TransferFrom(b.address, caller, b.address, b.stakeAmount); err != nil {
		return fmt.Errorf("stake market %d: %w", marketID, err)
	}

	if side {
		m.YesPool.Add(m.YesPool, b.stakeAmount)
	} else {
		m.NoPool.Add(m.NoPool, b.stakeAmount)
	}

	if existing != nil {
		existing.Amount.Add(existing.Amount, b.stakeAmount)
		return nil
	}
	b.stakes[marketID][caller] = &domain.Stake{
		Staker: caller,
		Amount: new(big.Int).Set(b.stakeAmount),
		Side:   side,
	}
	return nil
}

// Resolve fixes a market's outcome. Oracle authority only, exactly once.
func (b *MarketBook) Resolve(caller common.Address, marketID uint64, outcome bool) error {
	if caller != b.oracle {
		return fmt.Errorf("resolve market %d: caller %s: %w", marketID, caller, domain.ErrUnauthorized)
	}
	m, ok := b.markets[marketID]
	if !ok {
		return fmt.Errorf("resolve market %d: %w", marketID, domain.ErrNotFound)
	}
	if m.Resolved {
		return fmt.Errorf("resolve market %d: %w", marketID, domain.ErrAlreadyResolved)
	}
	m.Resolved = true
	m.Outcome = outcome
	return nil
}

// Claim pays out the caller's winnings: principal plus a share of the losing
// pool proportional to the caller's stake within the winning pool, truncated
// toward zero. Each staker claims at most once.
func (b *MarketBook) Claim(caller common.Address, marketID uint64) (*big.Int, error) {
	m, ok := b.markets[marketID]
	if !ok {
		return nil, fmt.Errorf("claim market %d: %w", marketID, domain.ErrNotFound)
	}
	if !m.Resolved {
		return nil, fmt.Errorf("claim market %d: %w", marketID, domain.ErrNotResolved)
	}

	stake := b.stakes[marketID][caller]
	if stake == nil || stake.Side != m.Outcome {
		return nil, fmt.Errorf("claim market %d: %w", marketID, domain.ErrWrongPrediction)
	}
	if stake.Claimed {
		return nil, fmt.Errorf("claim market %d: %w", marketID, domain.ErrAlreadyClaimed)
	}

	winning, losing := m.YesPool, m.NoPool
	if !m.Outcome {
		winning, losing = m.NoPool, m.YesPool
	}

	// winning > 0 whenever a claimant exists: the claimant's own stake is in it.
	bonus := new(big.Int).Mul(stake.Amount, losing)
	bonus.Div(bonus, winning)
	payout := new(big.Int).Add(stake.Amount, bonus)

	if err := b.payment.Transfer(b.address, caller, payout); err != nil {
		return nil, fmt.Errorf("claim market %d: %w", marketID, err)
	}
	stake.Claimed = true
	return payout, nil
}

// Market returns a copy of the market with the given id.
func (b *MarketBook) Market(marketID uint64) (domain.Market, error) {
	m, ok := b.markets[marketID]
	if !ok {
		return domain.Market{}, fmt.Errorf("market %d: %w", marketID, domain.ErrNotFound)
	}
	cp := *m
	cp.YesPool = new(big.Int).Set(m.YesPool)
	cp.NoPool = new(big.Int).Set(m.NoPool)
	return cp, nil
}

// StakeOf returns the caller's stake in a market, or ErrNotFound.
func (b *MarketBook) StakeOf(marketID uint64, staker common.Address) (domain.Stake, error) {
	s := b.stakes[marketID][staker]
	if s == nil {
		return domain.Stake{}, fmt.Errorf("stake %d/%s: %w", marketID, staker, domain.ErrNotFound)
	}
	cp := *s
	cp.Amount = new(big.Int).Set(s.Amount)
	return cp, nil
}
