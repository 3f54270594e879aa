// Package repayer approves and repays outstanding pool debt.
package repayer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/lendo/internal/domain"
	"github.com/vadiminshakov/lendo/internal/gateway"
	"go.uber.org/zap"
)

type contractGateway interface {
	Resolve(ctx context.Context, descriptor string, address common.Address) (*gateway.Contract, error)
	Send(ctx context.Context, contract *gateway.Contract, value *big.Int, method string, args ...interface{}) (*types.Transaction, error)
	AwaitConfirmation(ctx context.Context, tx *types.Transaction, confirmations uint64) (*types.Receipt, error)
	Account() common.Address
}

type tokenApprover interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error
}

type positionReader interface {
	ReadPosition(ctx context.Context, pool, account common.Address) (*domain.PositionSnapshot, error)
}

// Executor repays pool debt. Partial repayment is the expected case; the
// workflow repays a fraction of the borrowed amount, never the full debt.
type Executor struct {
	gw            contractGateway
	approver      tokenApprover
	positions     positionReader
	rateMode      domain.RateMode
	confirmations uint64
	logger        *zap.Logger
}

// New creates an Executor repaying at the given rate mode.
func New(gw contractGateway, approver tokenApprover, positions positionReader, rateMode domain.RateMode, confirmations uint64, logger *zap.Logger) *Executor {
	return &Executor{gw: gw, approver: approver, positions: positions, rateMode: rateMode, confirmations: confirmations, logger: logger}
}

// HalfOf returns floor(amount / 2) in smallest-unit integer arithmetic.
func HalfOf(amount *big.Int) *big.Int {
	return new(big.Int).Rsh(amount, 1)
}

// Repay approves the pool for amount on asset, submits
// repay(asset, amount, rateMode, account), waits for confirmation and
// returns a fresh post-repay position read.
func (e *Executor) Repay(ctx context.Context, pool, asset common.Address, amount *big.Int) (*domain.PositionSnapshot, error) {
	if err := e.approver.Approve(ctx, asset, pool, amount); err != nil {
		return nil, errors.Wrap(err, "approve pool")
	}

	contract, err := e.gw.Resolve(ctx, gateway.InterfaceLendingPool, pool)
	if err != nil {
		return nil, errors.Wrap(err, "resolve lending pool")
	}

	tx, err := e.gw.Send(ctx, contract, nil, "repay", asset, amount, e.rateMode.BigInt(), e.gw.Account())
	if err != nil {
		return nil, errors.Wrap(err, "submit repay")
	}

	if _, err := e.gw.AwaitConfirmation(ctx, tx, e.confirmations); err != nil {
		return nil, errors.Wrap(err, "confirm repay")
	}

	e.logger.Info("repaid",
		zap.String("asset", asset.Hex()),
		zap.String("amount", domain.FormatWei(amount)),
		zap.String("rate_mode", e.rateMode.String()))

	snapshot, err := e.positions.ReadPosition(ctx, pool, e.gw.Account())
	if err != nil {
		return nil, errors.Wrap(err, "read position after repay")
	}
	return snapshot, nil
}
