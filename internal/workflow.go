// Package internal wires the lending services into one end-to-end run.
package internal

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/lendo/config"
	"github.com/vadiminshakov/lendo/internal/domain"
	"github.com/vadiminshakov/lendo/internal/gateway"
	"github.com/vadiminshakov/lendo/internal/services/approver"
	"github.com/vadiminshakov/lendo/internal/services/borrower"
	"github.com/vadiminshakov/lendo/internal/services/collateral"
	"github.com/vadiminshakov/lendo/internal/services/oracle"
	"github.com/vadiminshakov/lendo/internal/services/position"
	"github.com/vadiminshakov/lendo/internal/services/repayer"
)

// Workflow step names, in execution order.
const (
	StepWrapAsset         = "wrap_asset"
	StepDepositCollateral = "deposit_collateral"
	StepReadPosition      = "read_position"
	StepReadPrice         = "read_price"
	StepBorrow            = "borrow"
	StepRepay             = "repay"
	StepDone              = "done"
)

var weiPerEther = decimal.New(1, 18)

type poolResolver interface {
	Resolve(ctx context.Context, descriptor string, address common.Address) (*gateway.Contract, error)
	Call(ctx context.Context, contract *gateway.Contract, method string, args ...interface{}) ([]interface{}, error)
	Account() common.Address
}

type collateralDepositor interface {
	AcquireWrapped(ctx context.Context, wrappedAsset common.Address, amount *big.Int) error
	Deposit(ctx context.Context, pool, asset common.Address, amount *big.Int) error
}

type positionReader interface {
	ReadPosition(ctx context.Context, pool, account common.Address) (*domain.PositionSnapshot, error)
}

type priceReader interface {
	ReadLatestPrice(ctx context.Context, feed common.Address, descriptor string) (*domain.PriceQuote, error)
}

type borrowExecutor interface {
	Borrow(ctx context.Context, pool, asset common.Address, amount *big.Int) (*domain.PositionSnapshot, error)
}

type repayExecutor interface {
	Repay(ctx context.Context, pool, asset common.Address, amount *big.Int) (*domain.PositionSnapshot, error)
}

type stepJournal interface {
	Append(record domain.StepRecord) error
}

// Workflow sequences wrap, deposit, borrow and repay into one run. Steps are
// strictly sequential: each one depends on the previous transaction being
// confirmed, so no concurrency is introduced. Any failure is terminal for
// the run; re-running from the start is the only recovery path.
type Workflow struct {
	conf      config.Config
	gw        poolResolver
	depositor collateralDepositor
	positions positionReader
	prices    priceReader
	borrower  borrowExecutor
	repayer   repayExecutor
	journal   stepJournal
	logger    *zap.Logger
}

// NewWorkflow builds a workflow with its service graph over the gateway.
// journal may be nil when step journaling is disabled.
func NewWorkflow(conf config.Config, gw *gateway.Gateway, journal stepJournal, logger *zap.Logger) *Workflow {
	tokenApprover := approver.New(gw, conf.Confirmations, logger)
	positions := position.New(gw, logger)

	return &Workflow{
		conf:      conf,
		gw:        gw,
		depositor: collateral.New(gw, tokenApprover, conf.Confirmations, logger),
		positions: positions,
		prices:    oracle.New(gw, logger),
		borrower:  borrower.New(gw, positions, conf.RateMode, conf.Confirmations, logger),
		repayer:   repayer.New(gw, tokenApprover, positions, conf.RateMode, conf.Confirmations, logger),
		journal:   journal,
		logger:    logger,
	}
}

// Run executes the full pipeline: wrap the deposit amount, supply it as
// collateral, size a borrow from the fresh position and the oracle price,
// borrow, then repay half of the borrowed amount.
func (w *Workflow) Run(ctx context.Context) error {
	depositWei := w.conf.DepositAmount.Mul(weiPerEther).BigInt()
	account := w.gw.Account()

	w.logger.Info("starting run",
		zap.String("network", w.conf.Network),
		zap.String("account", account.Hex()),
		zap.String("deposit", w.conf.DepositAmount.String()))

	pool, err := w.resolvePool(ctx)
	if err != nil {
		return errors.Wrap(err, "resolve lending pool address")
	}
	w.logger.Info("lending pool resolved", zap.String("pool", pool.Hex()))

	if err := w.depositor.AcquireWrapped(ctx, w.conf.WrappedAsset, depositWei); err != nil {
		return errors.Wrap(err, "wrap asset")
	}
	w.record(StepWrapAsset, depositWei, nil)

	if err := w.depositor.Deposit(ctx, pool, w.conf.WrappedAsset, depositWei); err != nil {
		return errors.Wrap(err, "deposit collateral")
	}
	w.record(StepDepositCollateral, depositWei, nil)

	snapshot, err := w.positions.ReadPosition(ctx, pool, account)
	if err != nil {
		return errors.Wrap(err, "read position after deposit")
	}
	w.record(StepReadPosition, nil, snapshot)

	quote, err := w.prices.ReadLatestPrice(ctx, w.conf.Oracle, "")
	if err != nil {
		return errors.Wrap(err, "read price")
	}
	w.record(StepReadPrice, quote.Answer, nil)

	borrowAmount, err := borrower.ComputeBorrowAmount(snapshot.AvailableBorrows, quote.Answer, w.conf.SafetyFactor)
	if err != nil {
		return errors.Wrap(err, "compute borrow amount")
	}
	w.logger.Info("borrow amount computed",
		zap.String("amount", domain.FormatWei(borrowAmount)),
		zap.String("safety_factor", w.conf.SafetyFactor.String()))

	snapshot, err = w.borrower.Borrow(ctx, pool, w.conf.DebtAsset, borrowAmount)
	if err != nil {
		return errors.Wrap(err, "borrow")
	}
	w.record(StepBorrow, borrowAmount, snapshot)

	// Intentionally repays a fraction of the loan, never the full debt.
	repayAmount := repayer.HalfOf(borrowAmount)
	w.logger.Info("repay amount computed", zap.String("amount", domain.FormatWei(repayAmount)))

	snapshot, err = w.repayer.Repay(ctx, pool, w.conf.DebtAsset, repayAmount)
	if err != nil {
		return errors.Wrap(err, "repay")
	}
	w.record(StepRepay, repayAmount, snapshot)

	w.record(StepDone, nil, snapshot)
	w.logger.Info("run complete",
		zap.String("remaining_debt", domain.FormatWei(snapshot.TotalDebt)))

	return nil
}

// resolvePool asks the address provider for the live lending pool address.
func (w *Workflow) resolvePool(ctx context.Context) (common.Address, error) {
	provider, err := w.gw.Resolve(ctx, gateway.InterfaceLendingPoolAddressProvider, w.conf.PoolAddressProvider)
	if err != nil {
		return common.Address{}, err
	}

	out, err := w.gw.Call(ctx, provider, "getLendingPool")
	if err != nil {
		return common.Address{}, err
	}
	if len(out) != 1 {
		return common.Address{}, errors.Errorf("unexpected getLendingPool output arity: %d", len(out))
	}

	pool, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, errors.Errorf("unexpected getLendingPool output type: %T", out[0])
	}
	return pool, nil
}

// record journals a completed step. Journal failures are logged and do not
// abort the run.
func (w *Workflow) record(step string, amount *big.Int, snapshot *domain.PositionSnapshot) {
	if w.journal == nil {
		return
	}

	rec := domain.StepRecord{
		Timestamp: time.Now().UTC(),
		Step:      step,
	}
	if amount != nil {
		rec.Amount = domain.FormatWei(amount)
	}
	if snapshot != nil {
		rec.TotalCollateral = domain.FormatWei(snapshot.TotalCollateral)
		rec.TotalDebt = domain.FormatWei(snapshot.TotalDebt)
		rec.AvailableBorrows = domain.FormatWei(snapshot.AvailableBorrows)
	}

	if err := w.journal.Append(rec); err != nil {
		w.logger.Warn("failed to journal step", zap.String("step", step), zap.Error(err))
	}
}
