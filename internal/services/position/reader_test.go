package position

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
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

func (m *gatewayMock) Account() common.Address {
	return m.Called().Get(0).(common.Address)
}

func TestReadPosition(t *testing.T) {
	pool := common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
	account := common.HexToAddress("0x0000000000000000000000000000000000000042")
	contract := &gateway.Contract{Address: pool}

	gw := &gatewayMock{}
	gw.On("Resolve", mock.Anything, gateway.InterfaceLendingPool, pool).Return(contract, nil)
	gw.On("Call", mock.Anything, contract, "getUserAccountData", []interface{}{account}).
		Return([]interface{}{
			big.NewInt(100), // totalCollateralETH
			big.NewInt(40),  // totalDebtETH
			big.NewInt(35),  // availableBorrowsETH
			big.NewInt(8250),
			big.NewInt(7500),
			big.NewInt(2),
		}, nil)

	r := New(gw, zap.NewNop())
	snapshot, err := r.ReadPosition(context.Background(), pool, account)
	require.NoError(t, err)
	require.Equal(t, "100", snapshot.TotalCollateral.String())
	require.Equal(t, "40", snapshot.TotalDebt.String())
	require.Equal(t, "35", snapshot.AvailableBorrows.String())
	require.Equal(t, "8250", snapshot.CurrentLiquidationThreshold.String())
	require.Equal(t, "7500", snapshot.LTV.String())
	require.Equal(t, "2", snapshot.HealthFactor.String())
	require.True(t, snapshot.HasDebt())
	require.True(t, snapshot.HasBorrowCapacity())
}

func TestReadPositionUnexpectedArity(t *testing.T) {
	pool := common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
	contract := &gateway.Contract{Address: pool}

	gw := &gatewayMock{}
	gw.On("Resolve", mock.Anything, gateway.InterfaceLendingPool, pool).Return(contract, nil)
	gw.On("Call", mock.Anything, contract, "getUserAccountData", mock.Anything).
		Return([]interface{}{big.NewInt(1)}, nil)

	r := New(gw, zap.NewNop())
	_, err := r.ReadPosition(context.Background(), pool, common.Address{})
	require.Error(t, err)
}
