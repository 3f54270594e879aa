// Package gateway wraps a single Ethereum node connection and exposes the
// uniform resolve/call/send/await primitives every on-chain step goes through.
package gateway

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	// ErrResolution contract/interface/address mismatch.
	ErrResolution = errors.New("contract resolution failed")
	// ErrTransactionFailed a submitted transaction reverted or failed to confirm.
	ErrTransactionFailed = errors.New("transaction failed")
)

const receiptPollInterval = 2 * time.Second

// NodeBackend is the subset of the Ethereum RPC the gateway needs.
// *ethclient.Client satisfies it.
type NodeBackend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Contract is a resolved contract handle bound to the gateway's connection.
type Contract struct {
	Address common.Address
	ABI     abi.ABI

	bound *bind.BoundContract
}

// Gateway resolves contract handles and performs reads, signed sends and
// confirmation waits over one node connection and one signing account.
type Gateway struct {
	backend NodeBackend
	chainID *big.Int
	account AccountProvider
	logger  *zap.Logger
}

// Dial connects to the node at rpcURL and builds a gateway bound to account.
func Dial(ctx context.Context, rpcURL string, account AccountProvider, logger *zap.Logger) (*Gateway, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial node %s", rpcURL)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch chain id")
	}

	return New(client, chainID, account, logger), nil
}

// New builds a gateway over an already established backend.
func New(backend NodeBackend, chainID *big.Int, account AccountProvider, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{backend: backend, chainID: chainID, account: account, logger: logger}
}

// Account returns the address of the bound signing account.
func (g *Gateway) Account() common.Address {
	return g.account.Address()
}

// Resolve builds a contract handle from an interface descriptor and address.
// The descriptor is either a bundled interface name or raw ABI JSON. An
// address with no deployed code resolves to ErrResolution.
func (g *Gateway) Resolve(ctx context.Context, descriptor string, address common.Address) (*Contract, error) {
	abiJSON := descriptor
	if !strings.HasPrefix(strings.TrimSpace(descriptor), "[") {
		bundled, ok := bundledABIs[descriptor]
		if !ok {
			return nil, errors.Wrapf(ErrResolution, "unknown interface %q", descriptor)
		}
		abiJSON = bundled
	}

	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, errors.Wrapf(ErrResolution, "parse ABI: %v", err)
	}

	code, err := g.backend.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch code at %s", address.Hex())
	}
	if len(code) == 0 {
		return nil, errors.Wrapf(ErrResolution, "no contract code at %s", address.Hex())
	}

	return &Contract{
		Address: address,
		ABI:     parsed,
		bound:   bind.NewBoundContract(address, parsed, g.backend, g.backend, g.backend),
	}, nil
}

// Call performs a read-only invocation and returns the raw output values.
func (g *Gateway) Call(ctx context.Context, contract *Contract, method string, args ...interface{}) ([]interface{}, error) {
	if _, ok := contract.ABI.Methods[method]; !ok {
		return nil, errors.Wrapf(ErrResolution, "method %q not in interface of %s", method, contract.Address.Hex())
	}

	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: g.account.Address()}
	if err := contract.bound.Call(opts, &out, method, args...); err != nil {
		return nil, errors.Wrapf(err, "call %s on %s", method, contract.Address.Hex())
	}
	return out, nil
}

// Send submits a state-changing transaction signed by the bound account.
// value is the native-asset amount attached to the call (nil for none).
func (g *Gateway) Send(ctx context.Context, contract *Contract, value *big.Int, method string, args ...interface{}) (*types.Transaction, error) {
	if _, ok := contract.ABI.Methods[method]; !ok {
		return nil, errors.Wrapf(ErrResolution, "method %q not in interface of %s", method, contract.Address.Hex())
	}

	opts, err := g.account.Transactor(g.chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.Value = value

	tx, err := contract.bound.Transact(opts, method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "send %s to %s", method, contract.Address.Hex())
	}

	g.logger.Info("transaction submitted",
		zap.String("method", method),
		zap.String("contract", contract.Address.Hex()),
		zap.String("tx", tx.Hash().Hex()))

	return tx, nil
}

// AwaitConfirmation blocks until the transaction is included and has the
// requested number of block confirmations. A reverted transaction surfaces
// as ErrTransactionFailed. The wait is unbounded; cancel ctx to abort.
func (g *Gateway) AwaitConfirmation(ctx context.Context, tx *types.Transaction, confirmations uint64) (*types.Receipt, error) {
	// a max elapsed time of 0 disables the retry deadline the library
	// applies by default; only ctx bounds the wait
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = receiptPollInterval
	policy.MaxInterval = receiptPollInterval * 10

	receipt, err := backoff.Retry(ctx, func() (*types.Receipt, error) {
		r, err := g.backend.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errors.New("transaction not yet included")
		}
		return r, nil
	}, backoff.WithBackOff(policy), backoff.WithMaxElapsedTime(0))
	if err != nil {
		return nil, errors.Wrapf(err, "await receipt for %s", tx.Hash().Hex())
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, errors.Wrapf(ErrTransactionFailed, "transaction %s reverted", tx.Hash().Hex())
	}

	if err := g.waitDepth(ctx, receipt, confirmations); err != nil {
		return nil, err
	}

	g.logger.Info("transaction confirmed",
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("confirmations", confirmations))

	return receipt, nil
}

// waitDepth blocks until the chain head is at least confirmations-1 blocks
// past the receipt's block.
func (g *Gateway) waitDepth(ctx context.Context, receipt *types.Receipt, confirmations uint64) error {
	if confirmations <= 1 {
		return nil
	}

	want := new(big.Int).SetUint64(confirmations)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		header, err := g.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "fetch head")
		}
		if header != nil && header.Number != nil && receipt.BlockNumber != nil {
			confirmed := new(big.Int).Sub(header.Number, receipt.BlockNumber)
			confirmed.Add(confirmed, big.NewInt(1))
			if confirmed.Cmp(want) >= 0 {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
