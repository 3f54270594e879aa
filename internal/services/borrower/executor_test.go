package borrower

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/lendo/internal/domain"
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

type positionsMock struct {
	mock.Mock
}

func (m *positionsMock) ReadPosition(ctx context.Context, pool, account common.Address) (*domain.PositionSnapshot, error) {
	args := m.Called(ctx, pool, account)
	var snapshot *domain.PositionSnapshot
	if v := args.Get(0); v != nil {
		snapshot = v.(*domain.PositionSnapshot)
	}
	return snapshot, args.Error(1)
}

func TestBorrow(t *testing.T) {
	pool := common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
	dai := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	account := common.HexToAddress("0x0000000000000000000000000000000000000042")
	amount := eth(95)
	contract := &gateway.Contract{Address: pool}
	tx := types.NewTx(&types.LegacyTx{})

	gw := &gatewayMock{}
	gw.On("Resolve", mock.Anything, gateway.InterfaceLendingPool, pool).Return(contract, nil)
	gw.On("Account").Return(account)
	gw.On("Send", mock.Anything, contract, (*big.Int)(nil), "borrow",
		[]interface{}{dai, amount, big.NewInt(2), uint16(0), account}).Return(tx, nil)
	gw.On("AwaitConfirmation", mock.Anything, tx, uint64(1)).Return(&types.Receipt{Status: types.ReceiptStatusSuccessful}, nil)

	after := &domain.PositionSnapshot{TotalDebt: big.NewInt(475)}
	positions := &positionsMock{}
	positions.On("ReadPosition", mock.Anything, pool, account).Return(after, nil)

	e := New(gw, positions, domain.RateModeVariable, 1, zap.NewNop())
	snapshot, err := e.Borrow(context.Background(), pool, dai, amount)
	require.NoError(t, err)
	require.Equal(t, after, snapshot)
	gw.AssertExpectations(t)
	positions.AssertExpectations(t)
}

func TestBorrowRevertIsFatal(t *testing.T) {
	pool := common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
	dai := common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	contract := &gateway.Contract{Address: pool}
	tx := types.NewTx(&types.LegacyTx{})

	gw := &gatewayMock{}
	gw.On("Resolve", mock.Anything, gateway.InterfaceLendingPool, pool).Return(contract, nil)
	gw.On("Account").Return(common.Address{})
	gw.On("Send", mock.Anything, contract, (*big.Int)(nil), "borrow", mock.Anything).Return(tx, nil)
	gw.On("AwaitConfirmation", mock.Anything, tx, uint64(1)).Return(nil, gateway.ErrTransactionFailed)

	positions := &positionsMock{}

	e := New(gw, positions, domain.RateModeVariable, 1, zap.NewNop())
	_, err := e.Borrow(context.Background(), pool, dai, big.NewInt(1))
	require.Error(t, err)
	positions.AssertNotCalled(t, "ReadPosition", mock.Anything, mock.Anything, mock.Anything)
}
