// Package borrower sizes and executes borrow transactions against the pool.
package borrower

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lendo/internal/domain"
	"github.com/vadiminshakov/lendo/internal/gateway"
	"go.uber.org/zap"
)

// ErrNoBorrowCapacity the computed borrow amount is not strictly positive.
var ErrNoBorrowCapacity = errors.New("no borrow capacity available")

const referralCode = uint16(0)

// The borrowed asset uses 18 decimals for its smallest unit.
var tokenUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

type contractGateway interface {
	Resolve(ctx context.Context, descriptor string, address common.Address) (*gateway.Contract, error)
	Send(ctx context.Context, contract *gateway.Contract, value *big.Int, method string, args ...interface{}) (*types.Transaction, error)
	AwaitConfirmation(ctx context.Context, tx *types.Transaction, confirmations uint64) (*types.Receipt, error)
	Account() common.Address
}

type positionReader interface {
	ReadPosition(ctx context.Context, pool, account common.Address) (*domain.PositionSnapshot, error)
}

// Executor submits borrow transactions sized below the account's capacity.
type Executor struct {
	gw            contractGateway
	positions     positionReader
	rateMode      domain.RateMode
	confirmations uint64
	logger        *zap.Logger
}

// New creates an Executor borrowing at the given rate mode.
func New(gw contractGateway, positions positionReader, rateMode domain.RateMode, confirmations uint64, logger *zap.Logger) *Executor {
	return &Executor{gw: gw, positions: positions, rateMode: rateMode, confirmations: confirmations, logger: logger}
}

// ComputeBorrowAmount converts available borrowing capacity into a
// smallest-unit token amount: amount = available * safetyFactor / price.
// availableBorrows and price share the same reference-asset denomination
// (wei of ETH; price is wei per one whole token). safetyFactor must be
// strictly between 0 and 1 to keep a margin below the liquidation threshold.
func ComputeBorrowAmount(availableBorrows, price *big.Int, safetyFactor decimal.Decimal) (*big.Int, error) {
	if safetyFactor.LessThanOrEqual(decimal.Zero) || safetyFactor.GreaterThanOrEqual(decimal.New(1, 0)) {
		return nil, errors.Errorf("safety factor must be in (0, 1), got %s", safetyFactor.String())
	}
	if price == nil || price.Sign() <= 0 {
		return nil, errors.New("price must be positive")
	}
	if availableBorrows == nil || availableBorrows.Sign() <= 0 {
		return nil, ErrNoBorrowCapacity
	}

	// amount = available * factor * 1e18 / price, carried out entirely in
	// integer arithmetic with the factor as coefficient/10^-exponent so the
	// division truncates instead of rounding at decimal precision.
	num := new(big.Int).Mul(availableBorrows, safetyFactor.Coefficient())
	num.Mul(num, tokenUnit)
	den := new(big.Int).Set(price)
	if exp := int64(safetyFactor.Exponent()); exp < 0 {
		den.Mul(den, new(big.Int).Exp(big.NewInt(10), big.NewInt(-exp), nil))
	} else {
		num.Mul(num, new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil))
	}
	amount := num.Quo(num, den)

	if amount.Sign() <= 0 {
		return nil, ErrNoBorrowCapacity
	}
	return amount, nil
}

// Borrow submits borrow(asset, amount, rateMode, 0, account), waits for the
// configured confirmation depth and returns a fresh post-borrow position read.
func (e *Executor) Borrow(ctx context.Context, pool, asset common.Address, amount *big.Int) (*domain.PositionSnapshot, error) {
	contract, err := e.gw.Resolve(ctx, gateway.InterfaceLendingPool, pool)
	if err != nil {
		return nil, errors.Wrap(err, "resolve lending pool")
	}

	tx, err := e.gw.Send(ctx, contract, nil, "borrow", asset, amount, e.rateMode.BigInt(), referralCode, e.gw.Account())
	if err != nil {
		return nil, errors.Wrap(err, "submit borrow")
	}

	if _, err := e.gw.AwaitConfirmation(ctx, tx, e.confirmations); err != nil {
		return nil, errors.Wrap(err, "confirm borrow")
	}

	e.logger.Info("borrowed",
		zap.String("asset", asset.Hex()),
		zap.String("amount", domain.FormatWei(amount)),
		zap.String("rate_mode", e.rateMode.String()))

	snapshot, err := e.positions.ReadPosition(ctx, pool, e.gw.Account())
	if err != nil {
		return nil, errors.Wrap(err, "read position after borrow")
	}
	return snapshot, nil
}
