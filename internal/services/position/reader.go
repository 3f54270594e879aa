// Package position reads the account's aggregate lending position.
package position

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/lendo/internal/domain"
	"github.com/vadiminshakov/lendo/internal/gateway"
	"go.uber.org/zap"
)

type contractGateway interface {
	Resolve(ctx context.Context, descriptor string, address common.Address) (*gateway.Contract, error)
	Call(ctx context.Context, contract *gateway.Contract, method string, args ...interface{}) ([]interface{}, error)
	Account() common.Address
}

// Reader performs fresh getUserAccountData reads. Position figures are never
// cached between steps; callers must re-read after every mutating call.
type Reader struct {
	gw     contractGateway
	logger *zap.Logger
}

// New creates a Reader.
func New(gw contractGateway, logger *zap.Logger) *Reader {
	return &Reader{gw: gw, logger: logger}
}

// ReadPosition reads the account's position from the pool.
func (r *Reader) ReadPosition(ctx context.Context, pool, account common.Address) (*domain.PositionSnapshot, error) {
	contract, err := r.gw.Resolve(ctx, gateway.InterfaceLendingPool, pool)
	if err != nil {
		return nil, errors.Wrap(err, "resolve lending pool")
	}

	out, err := r.gw.Call(ctx, contract, "getUserAccountData", account)
	if err != nil {
		return nil, errors.Wrap(err, "read account data")
	}
	if len(out) != 6 {
		return nil, errors.Errorf("unexpected account data arity: %d", len(out))
	}

	values := make([]*big.Int, len(out))
	for i, v := range out {
		b, ok := v.(*big.Int)
		if !ok {
			return nil, errors.Errorf("unexpected account data field %d type: %T", i, v)
		}
		values[i] = b
	}

	snapshot := &domain.PositionSnapshot{
		TotalCollateral:             values[0],
		TotalDebt:                   values[1],
		AvailableBorrows:            values[2],
		CurrentLiquidationThreshold: values[3],
		LTV:                         values[4],
		HealthFactor:                values[5],
	}

	r.logger.Info("position read",
		zap.String("total_collateral", domain.FormatWei(snapshot.TotalCollateral)),
		zap.String("total_debt", domain.FormatWei(snapshot.TotalDebt)),
		zap.String("available_borrows", domain.FormatWei(snapshot.AvailableBorrows)))

	return snapshot, nil
}
