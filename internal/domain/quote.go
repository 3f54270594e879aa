package domain

import (
	"math/big"
	"time"
)

// PriceQuote is a single oracle round: the exchange rate of the borrowed
// asset denominated in wei of the reference asset. Freshness is reported
// but not enforced.
type PriceQuote struct {
	RoundID   *big.Int
	Answer    *big.Int
	UpdatedAt time.Time
}

// Age returns how long ago the round was updated.
func (q *PriceQuote) Age(now time.Time) time.Duration {
	if q == nil || q.UpdatedAt.IsZero() {
		return 0
	}
	return now.Sub(q.UpdatedAt)
}
