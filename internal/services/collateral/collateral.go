// Package collateral acquires the wrapped asset and deposits it into the pool.
package collateral

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

// Aave deposits carry a referral code; 0 means no referral.
const referralCode = uint16(0)

type contractGateway interface {
	Resolve(ctx context.Context, descriptor string, address common.Address) (*gateway.Contract, error)
	Call(ctx context.Context, contract *gateway.Contract, method string, args ...interface{}) ([]interface{}, error)
	Send(ctx context.Context, contract *gateway.Contract, value *big.Int, method string, args ...interface{}) (*types.Transaction, error)
	AwaitConfirmation(ctx context.Context, tx *types.Transaction, confirmations uint64) (*types.Receipt, error)
	Account() common.Address
}

type tokenApprover interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error
}

// Depositor wraps native funds and supplies them to the lending pool as collateral.
type Depositor struct {
	gw            contractGateway
	approver      tokenApprover
	confirmations uint64
	logger        *zap.Logger
}

// New creates a Depositor.
func New(gw contractGateway, approver tokenApprover, confirmations uint64, logger *zap.Logger) *Depositor {
	return &Depositor{gw: gw, approver: approver, confirmations: confirmations, logger: logger}
}

// AcquireWrapped sends a wrap transaction carrying amount of native asset to
// the wrapped-asset contract and waits for it to confirm. The resulting
// balance is read back and logged, not enforced numerically.
func (d *Depositor) AcquireWrapped(ctx context.Context, wrappedAsset common.Address, amount *big.Int) error {
	contract, err := d.gw.Resolve(ctx, gateway.InterfaceWrappedNative, wrappedAsset)
	if err != nil {
		return errors.Wrap(err, "resolve wrapped asset contract")
	}

	tx, err := d.gw.Send(ctx, contract, amount, "deposit")
	if err != nil {
		return errors.Wrap(err, "submit wrap")
	}

	if _, err := d.gw.AwaitConfirmation(ctx, tx, d.confirmations); err != nil {
		return errors.Wrap(err, "confirm wrap")
	}

	out, err := d.gw.Call(ctx, contract, "balanceOf", d.gw.Account())
	if err != nil {
		return errors.Wrap(err, "read wrapped balance")
	}
	if balance, ok := firstBigInt(out); ok {
		d.logger.Info("wrapped asset acquired",
			zap.String("asset", wrappedAsset.Hex()),
			zap.String("balance", domain.FormatWei(balance)))
	}

	return nil
}

// Deposit grants the pool an allowance of exactly amount on asset, then
// supplies amount as collateral on behalf of the bound account.
func (d *Depositor) Deposit(ctx context.Context, pool, asset common.Address, amount *big.Int) error {
	if err := d.approver.Approve(ctx, asset, pool, amount); err != nil {
		return errors.Wrap(err, "approve pool")
	}

	contract, err := d.gw.Resolve(ctx, gateway.InterfaceLendingPool, pool)
	if err != nil {
		return errors.Wrap(err, "resolve lending pool")
	}

	tx, err := d.gw.Send(ctx, contract, nil, "deposit", asset, amount, d.gw.Account(), referralCode)
	if err != nil {
		return errors.Wrap(err, "submit deposit")
	}

	if _, err := d.gw.AwaitConfirmation(ctx, tx, d.confirmations); err != nil {
		return errors.Wrap(err, "confirm deposit")
	}

	d.logger.Info("collateral deposited",
		zap.String("asset", asset.Hex()),
		zap.String("amount", domain.FormatWei(amount)))

	return nil
}

func firstBigInt(out []interface{}) (*big.Int, bool) {
	if len(out) != 1 {
		return nil, false
	}
	v, ok := out[0].(*big.Int)
	return v, ok
}
