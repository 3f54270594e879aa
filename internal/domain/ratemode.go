package domain

import "math/big"

// RateMode interest rate mode of a borrow position.
type RateMode string

const (
	// RateModeStable stable interest rate.
	RateModeStable RateMode = "stable"
	// RateModeVariable variable interest rate.
	RateModeVariable RateMode = "variable"
)

// String returns the string representation.
func (m RateMode) String() string {
	return string(m)
}

// IsValid checks if the RateMode value is valid.
func (m RateMode) IsValid() bool {
	return m == RateModeStable || m == RateModeVariable
}

// BigInt returns the pool's numeric encoding of the mode (1 stable, 2 variable).
func (m RateMode) BigInt() *big.Int {
	if m == RateModeStable {
		return big.NewInt(1)
	}
	return big.NewInt(2)
}
