// Package oracle reads the latest exchange rate from a price feed contract.
package oracle

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/lendo/internal/domain"
	"github.com/vadiminshakov/lendo/internal/gateway"
	"go.uber.org/zap"
)

type contractGateway interface {
	Resolve(ctx context.Context, descriptor string, address common.Address) (*gateway.Contract, error)
	Call(ctx context.Context, contract *gateway.Contract, method string, args ...interface{}) ([]interface{}, error)
}

// Reader reads the latest round from an aggregator feed. Round staleness is
// surfaced through the quote but not enforced here.
type Reader struct {
	gw     contractGateway
	logger *zap.Logger
}

// New creates a Reader.
func New(gw contractGateway, logger *zap.Logger) *Reader {
	return &Reader{gw: gw, logger: logger}
}

// ReadLatestPrice reads the feed's latest round. descriptor is usually the
// bundled aggregator interface name, but raw ABI JSON is accepted too.
func (r *Reader) ReadLatestPrice(ctx context.Context, feed common.Address, descriptor string) (*domain.PriceQuote, error) {
	if descriptor == "" {
		descriptor = gateway.InterfaceAggregatorV3
	}

	contract, err := r.gw.Resolve(ctx, descriptor, feed)
	if err != nil {
		return nil, errors.Wrap(err, "resolve price feed")
	}

	out, err := r.gw.Call(ctx, contract, "latestRoundData")
	if err != nil {
		return nil, errors.Wrap(err, "read latest round")
	}
	// roundId, answer, startedAt, updatedAt, answeredInRound; only the first,
	// second and fourth fields are used.
	if len(out) != 5 {
		return nil, errors.Errorf("unexpected round data arity: %d", len(out))
	}

	roundID, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected round id type: %T", out[0])
	}
	answer, ok := out[1].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected answer type: %T", out[1])
	}
	updatedAt, ok := out[3].(*big.Int)
	if !ok {
		return nil, errors.Errorf("unexpected updatedAt type: %T", out[3])
	}

	quote := &domain.PriceQuote{
		RoundID:   roundID,
		Answer:    answer,
		UpdatedAt: time.Unix(updatedAt.Int64(), 0),
	}

	r.logger.Info("price read",
		zap.String("feed", feed.Hex()),
		zap.String("round", roundID.String()),
		zap.String("answer", domain.FormatWei(answer)),
		zap.Time("updated_at", quote.UpdatedAt))

	return quote, nil
}
