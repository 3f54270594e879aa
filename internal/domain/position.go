// Package domain defines core data structures used throughout the workflow.
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PositionSnapshot is the aggregate lending position of an account, read
// fresh from the pool. All values are denominated in wei of the reference
// asset (ETH). Snapshots are never cached between steps.
type PositionSnapshot struct {
	TotalCollateral             *big.Int
	TotalDebt                   *big.Int
	AvailableBorrows            *big.Int
	CurrentLiquidationThreshold *big.Int
	LTV                         *big.Int
	HealthFactor                *big.Int
}

// HasDebt reports whether the account owes anything to the pool.
func (p *PositionSnapshot) HasDebt() bool {
	return p != nil && p.TotalDebt != nil && p.TotalDebt.Sign() > 0
}

// HasBorrowCapacity reports whether the account can borrow more.
func (p *PositionSnapshot) HasBorrowCapacity() bool {
	return p != nil && p.AvailableBorrows != nil && p.AvailableBorrows.Sign() > 0
}

// FormatWei renders a smallest-unit integer as a human-readable 18-decimal
// string for logs and console output.
func FormatWei(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -18).String()
}
