// Package approver issues ERC-20 allowance approvals and waits for them to land.
package approver

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
	Call(ctx context.Context, contract *gateway.Contract, method string, args ...interface{}) ([]interface{}, error)
	Send(ctx context.Context, contract *gateway.Contract, value *big.Int, method string, args ...interface{}) (*types.Transaction, error)
	AwaitConfirmation(ctx context.Context, tx *types.Transaction, confirmations uint64) (*types.Receipt, error)
	Account() common.Address
}

// Approver grants spenders allowances on ERC-20 tokens. Approvals overwrite
// any prior allowance, they are not additive.
type Approver struct {
	gw            contractGateway
	confirmations uint64
	logger        *zap.Logger
}

// New creates an Approver waiting for the given confirmation depth.
func New(gw contractGateway, confirmations uint64, logger *zap.Logger) *Approver {
	return &Approver{gw: gw, confirmations: confirmations, logger: logger}
}

// Approve sets the allowance for (account, spender) on token to exactly amount
// and blocks until the transaction confirms. Any revert is fatal for the run.
func (a *Approver) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) error {
	contract, err := a.gw.Resolve(ctx, gateway.InterfaceERC20, token)
	if err != nil {
		return errors.Wrap(err, "resolve token contract")
	}

	tx, err := a.gw.Send(ctx, contract, nil, "approve", spender, amount)
	if err != nil {
		return errors.Wrap(err, "submit approve")
	}

	if _, err := a.gw.AwaitConfirmation(ctx, tx, a.confirmations); err != nil {
		return errors.Wrap(err, "confirm approve")
	}

	a.logger.Info("allowance approved",
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("amount", domain.FormatWei(amount)))

	return nil
}

// Allowance reads the current allowance for (owner, spender) on token.
func (a *Approver) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	contract, err := a.gw.Resolve(ctx, gateway.InterfaceERC20, token)
	if err != nil {
		return nil, errors.Wrap(err, "resolve token contract")
	}

	out, err := a.gw.Call(ctx, contract, "allowance", owner, spender)
	if err != nil {
		return nil, errors.Wrap(err, "read allowance")
	}
	if len(out) != 1 {
		return nil, errors.Errorf("unexpected allowance output arity: %d", len(out))
	}

	allowance, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected allowance output type: %T", out[0])
	}
	return allowance, nil
}
