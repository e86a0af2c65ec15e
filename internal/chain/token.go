// Package chain implements the on-chain state machinery of the Janus racing
// demo as in-process ledger engines: a payment-token ledger, a constant-product
// pool, a dynamic-asset registry, and a binary prediction market. The engines
// themselves are not goroutine-safe; the Node serializes every call the way a
// chain serializes transactions, so each operation is atomic with respect to
// concurrent callers.
package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/januslabs/janusd/internal/domain"
)

// Token is a minimal fungible-token ledger: balances plus spender allowances.
// It is the payment asset the registry and the prediction market settle in.
type Token struct {
	name   string
	symbol string

	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewToken creates an empty token ledger.
func NewToken(name, symbol string) *Token {
	return &Token{
		name:       name,
		symbol:     symbol,
		supply:     new(big.Int),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Name returns the token name.
func (t *Token) Name() string { return t.name }

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// TotalSupply returns the total minted supply.
func (t *Token) TotalSupply() *big.Int { return new(big.Int).Set(t.supply) }

// BalanceOf returns the balance of addr.
func (t *Token) BalanceOf(addr common.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Allowance returns how much spender may move out of owner's balance.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// Mint credits amount to addr and grows the supply.
func (t *Token) Mint(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint %s: %w", t.symbol, domain.ErrInvalidInput)
	}
	t.credit(addr, amount)
	t.supply.Add(t.supply, amount)
	return nil
}

// Approve sets spender's allowance over owner's balance.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("approve %s: %w", t.symbol, domain.ErrInvalidInput)
	}
	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)
	return nil
}

// Transfer moves amount from from to to.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("transfer %s: %w", t.symbol, domain.ErrInvalidInput)
	}
	return t.move(from, to, amount)
}

// TransferFrom moves amount from from to to on behalf of spender, consuming
// spender's allowance. The allowance check and the balance move happen as one
// step: on any failure nothing is changed.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("transferFrom %s: %w", t.symbol, domain.ErrInvalidInput)
	}
	allowance := t.Allowance(from, spender)
	if allowance.Cmp(amount) < 0 {
		return fmt.Errorf("transferFrom %s: %w", t.symbol, domain.ErrInsufficientAllowance)
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	m, ok := t.allowances[from]
	if !ok {
		// A zero-amount transfer needs no prior approval, so the inner
		// map may not exist yet.
		m = make(map[common.Address]*big.Int)
		t.allowances[from] = m
	}
	m[spender] = allowance.Sub(allowance, amount)
	return nil
}

func (t *Token) move(from, to common.Address, amount *big.Int) error {
	bal := t.BalanceOf(from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("transfer %s: %w", t.symbol, domain.ErrInsufficientBalance)
	}
	t.balances[from] = bal.Sub(bal, amount)
	t.credit(to, amount)
	return nil
}

func (t *Token) credit(addr common.Address, amount *big.Int) {
	if b, ok := t.balances[addr]; ok {
		b.Add(b, amount)
		return
	}
	t.balances[addr] = new(big.Int).Set(amount)
}
