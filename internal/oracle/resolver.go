package oracle

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

// Priority selects which of the two price sources a pool trusts.
// Exactly one mode is active per pool, fixed at initialization.
type Priority uint8

const (
	PriorityPythOnly  Priority = 0x0
	PrioritySerumOnly Priority = 0x1
)

// Quote is a resolved market price and the ledger checkpoint it was
// valid at. It is never persisted; only derived pool state is.
type Quote struct {
	Price     fixedpoint.Decimal
	ValidSlot uint64
}

// Resolver reconciles the off-chain-pushed Pyth feed and the on-chain
// Serum order book into a single market price. Program identities are
// injected once at startup.
type Resolver struct {
	pythProgramID  account.Key
	serumProgramID account.Key
	logger         *zap.Logger
}

// NewResolver builds a Resolver pinned to the given oracle programs.
func NewResolver(pythProgramID, serumProgramID account.Key, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		pythProgramID:  pythProgramID,
		serumProgramID: serumProgramID,
		logger:         logger,
	}
}

// PythProgramID returns the configured Pyth program identity.
func (r *Resolver) PythProgramID() account.Key {
	return r.pythProgramID
}

// SerumProgramID returns the configured order-book program identity.
func (r *Resolver) SerumProgramID() account.Key {
	return r.serumProgramID
}

// ResolvePyth derives the cross price A/B from the two sides' price
// accounts. The combined valid slot is the older of the two sides.
func (r *Resolver) ResolvePyth(priceA, priceB *account.Account, currentSlot uint64) (Quote, error) {
	pa, slotA, err := getPythPrice(priceA, currentSlot)
	if err != nil {
		r.logger.Debug("pyth side a rejected", zap.Error(err))
		return Quote{}, err
	}
	pb, slotB, err := getPythPrice(priceB, currentSlot)
	if err != nil {
		r.logger.Debug("pyth side b rejected", zap.Error(err))
		return Quote{}, err
	}
	price, err := pa.TryDiv(pb)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Price: price, ValidSlot: min(slotA, slotB)}, nil
}

// ResolveSerum derives the order-book mid price. On-chain state is
// current by construction, so the valid slot is the current slot.
func (r *Resolver) ResolveSerum(accs SerumAccounts, currentSlot uint64, baseDecimals, quoteDecimals uint8) (Quote, error) {
	price, err := getSerumMarketPrice(accs, baseDecimals, quoteDecimals, r.serumProgramID)
	if err != nil {
		r.logger.Debug("serum price rejected", zap.Error(err))
		return Quote{}, err
	}
	return Quote{Price: price, ValidSlot: currentSlot}, nil
}

// Resolve picks the pool's active source. Any failure is terminal for
// the calling operation; there is no fallback between sources.
func (r *Resolver) Resolve(
	priority Priority,
	pythA, pythB *account.Account,
	serum SerumAccounts,
	currentSlot uint64,
	baseDecimals, quoteDecimals uint8,
) (Quote, error) {
	switch priority {
	case PriorityPythOnly:
		if pythA == nil || pythB == nil {
			return Quote{}, fmt.Errorf("%w: missing pyth price account", ErrInvalidPythConfig)
		}
		return r.ResolvePyth(pythA, pythB, currentSlot)
	case PrioritySerumOnly:
		return r.ResolveSerum(serum, currentSlot, baseDecimals, quoteDecimals)
	default:
		return Quote{}, fmt.Errorf("%w: flag %#x", ErrUnsupportedOraclePriority, uint8(priority))
	}
}
