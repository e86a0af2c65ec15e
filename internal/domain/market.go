package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PredicateKind selects how a market's outcome is derived from an entrant's
// final position. Markets carry a structured subject instead of relying on
// free-text parsing of the description.
type PredicateKind string

const (
	// PredicateWins is true when the subject finishes first.
	PredicateWins PredicateKind = "wins"
	// PredicatePodium is true when the subject finishes in the top three.
	PredicatePodium PredicateKind = "podium"
	// PredicateTopTen is true when the subject finishes in the top ten.
	PredicateTopTen PredicateKind = "top10"
)

// Valid reports whether k is a known predicate kind.
func (k PredicateKind) Valid() bool {
	switch k {
	case PredicateWins, PredicatePodium, PredicateTopTen:
		return true
	}
	return false
}

// Evaluate applies the predicate to a final position.
func (k PredicateKind) Evaluate(position int) bool {
	switch k {
	case PredicateWins:
		return position == 1
	case PredicatePodium:
		return position >= 1 && position <= 3
	case PredicateTopTen:
		return position >= 1 && position <= 10
	}
	return false
}

// Market is one binary prediction market. Pools only grow until resolution;
// after resolution no further stakes are accepted and each staker on the
// winning side may claim exactly once.
type Market struct {
	ID             uint64
	Description    string
	SubjectEntrant int
	Predicate      PredicateKind
	YesPool        *big.Int
	NoPool         *big.Int
	Resolved       bool
	Outcome        bool // meaningful only when Resolved
	CreatedAt      time.Time
}

// Stake is one staker's accumulated position in a market.
type Stake struct {
	Staker  common.Address
	Amount  *big.Int
	Side    bool
	Claimed bool
}
