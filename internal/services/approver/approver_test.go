package approver

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/lendo/internal/gateway"
	"go.uber.org/zap"
)

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) Resolve(ctx context.Context, descriptor string, address common.Address) (*gateway.Contract, error) {
	args := m.Called(ctx, descriptor, address)
	var contract *gateway.Contract
	if v := args.Get(0); v != nil {
		contract = v.(*gateway.Contract)
	}
	return contract, args.Error(1)
}

func (m *gatewayMock) Call(ctx context.Context, contract *gateway.Contract, method string, callArgs ...interface{}) ([]interface{}, error) {
	args := m.Called(ctx, contract, method, callArgs)
	var out []interface{}
	if v := args.Get(0); v != nil {
		out = v.([]interface{})
	}
	return out, args.Error(1)
}

func (m *gatewayMock) Send(ctx context.Context, contract *gateway.Contract, value *big.Int, method string, callArgs ...interface{}) (*types.Transaction, error) {
	args := m.Called(ctx, contract, value, method, callArgs)
	var tx *types.Transaction
	if v := args.Get(0); v != nil {
		tx = v.(*types.Transaction)
	}
	return tx, args.Error(1)
}

func (m *gatewayMock) AwaitConfirmation(ctx context.Context, tx *types.Transaction, confirmations uint64) (*types.Receipt, error) {
	args := m.Called(ctx, tx, confirmations)
	var receipt *types.Receipt
	if v := args.Get(0); v != nil {
		receipt = v.(*types.Receipt)
	}
	return receipt, args.Error(1)
}

func (m *gatewayMock) Account() common.Address {
	return m.Called().Get(0).(common.Address)
}

func TestApprove(t *testing.T) {
	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	spender := common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
	amount := big.NewInt(1e18)
	contract := &gateway.Contract{Address: token}
	tx := types.NewTx(&types.LegacyTx{})

	gw := &gatewayMock{}
	gw.On("Resolve", mock.Anything, gateway.InterfaceERC20, token).Return(contract, nil)
	gw.On("Send", mock.Anything, contract, (*big.Int)(nil), "approve", []interface{}{spender, amount}).Return(tx, nil)
	gw.On("AwaitConfirmation", mock.Anything, tx, uint64(1)).Return(&types.Receipt{Status: types.ReceiptStatusSuccessful}, nil)

	a := New(gw, 1, zap.NewNop())
	require.NoError(t, a.Approve(context.Background(), token, spender, amount))
	gw.AssertExpectations(t)
}

func TestApproveRevertIsFatal(t *testing.T) {
	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	spender := common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
	contract := &gateway.Contract{Address: token}
	tx := types.NewTx(&types.LegacyTx{})

	gw := &gatewayMock{}
	gw.On("Resolve", mock.Anything, gateway.InterfaceERC20, token).Return(contract, nil)
	gw.On("Send", mock.Anything, contract, (*big.Int)(nil), "approve", mock.Anything).Return(tx, nil)
	gw.On("AwaitConfirmation", mock.Anything, tx, uint64(1)).Return(nil, gateway.ErrTransactionFailed)

	a := New(gw, 1, zap.NewNop())
	err := a.Approve(context.Background(), token, spender, big.NewInt(1))
	require.Error(t, err)
	require.True(t, errors.Is(err, gateway.ErrTransactionFailed))
}

func TestAllowance(t *testing.T) {
	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	owner := common.HexToAddress("0x0000000000000000000000000000000000000001")
	spender := common.HexToAddress("0x0000000000000000000000000000000000000002")
	contract := &gateway.Contract{Address: token}

	gw := &gatewayMock{}
	gw.On("Resolve", mock.Anything, gateway.InterfaceERC20, token).Return(contract, nil)
	gw.On("Call", mock.Anything, contract, "allowance", []interface{}{owner, spender}).
		Return([]interface{}{big.NewInt(42)}, nil)

	a := New(gw, 1, zap.NewNop())
	allowance, err := a.Allowance(context.Background(), token, owner, spender)
	require.NoError(t, err)
	require.Equal(t, "42", allowance.String())
}

func TestAllowanceBadOutput(t *testing.T) {
	token := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	contract := &gateway.Contract{Address: token}

	gw := &gatewayMock{}
	gw.On("Resolve", mock.Anything, gateway.InterfaceERC20, token).Return(contract, nil)
	gw.On("Call", mock.Anything, contract, "allowance", mock.Anything).
		Return([]interface{}{"not a number"}, nil)

	a := New(gw, 1, zap.NewNop())
	_, err := a.Allowance(context.Background(), token, common.Address{}, common.Address{})
	require.Error(t, err)
}
