package domain

import "errors"

// Ledger-call precondition violations. Every mutating chain call either
// applies fully or returns one of these with no state change.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSlippageExceeded = errors.New("slippage exceeded")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrNotForSale       = errors.New("not for sale")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrMarketClosed     = errors.New("market closed")
	ErrAlreadyResolved  = errors.New("already resolved")
	ErrNotResolved      = errors.New("not resolved")
	ErrWrongPrediction  = errors.New("wrong prediction")
	ErrAlreadyClaimed   = errors.New("already claimed")
	ErrSideMismatch     = errors.New("stake side mismatch")

	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Off-chain failure classes.
var (
	// ErrNonceConflict marks a transient submission failure (nonce
	// contention against the oracle signing key). Eligible for retry.
	ErrNonceConflict = errors.New("nonce conflict")

	ErrLockHeld      = errors.New("lock already held")
	ErrFeedNoData    = errors.New("feed returned no data")
	ErrIterationBusy = errors.New("settlement iteration already running")
)

// IsTransient reports whether err is a retryable submission failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNonceConflict)
}
