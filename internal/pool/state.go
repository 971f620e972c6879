package pool

import (
	"fmt"
	"math"

	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

// State is the persisted pricing state of one pool. It is owned
// exclusively by the engine instance processing a request; the
// transport layer loads it before a call and stores it after.
//
// MarketPrice is kept in raw-unit convention (quote raw units per base
// raw unit); LastMarketPrice keeps the oracle's whole-token convention
// for the replay guard.
type State struct {
	MarketPrice              fixedpoint.Decimal `json:"market_price"`
	Slope                    fixedpoint.Decimal `json:"slope"`
	BaseReserve              fixedpoint.Decimal `json:"base_reserve"`
	QuoteReserve             fixedpoint.Decimal `json:"quote_reserve"`
	TotalSupply              uint64             `json:"total_supply"`
	LastMarketPrice          fixedpoint.Decimal `json:"last_market_price"`
	LastValidMarketPriceSlot uint64             `json:"last_valid_market_price_slot"`
}

// InitParams seeds a State at pool initialization.
type InitParams struct {
	MarketPrice              fixedpoint.Decimal
	Slope                    fixedpoint.Decimal
	LastMarketPrice          fixedpoint.Decimal
	LastValidMarketPriceSlot uint64
}

// NewState builds an empty pool at the given price and slope.
func NewState(params InitParams) *State {
	return &State{
		MarketPrice:              params.MarketPrice,
		Slope:                    params.Slope,
		BaseReserve:              fixedpoint.Zero(),
		QuoteReserve:             fixedpoint.Zero(),
		LastMarketPrice:          params.LastMarketPrice,
		LastValidMarketPriceSlot: params.LastValidMarketPriceSlot,
	}
}

// SetMarketPrice re-bases an oracle price (quote per base, whole-token
// units) into the pool's raw-unit convention. Must run before quoting.
func (s *State) SetMarketPrice(baseDecimals, quoteDecimals uint8, price fixedpoint.Decimal) error {
	quoteScale, err := fixedpoint.TryPow10(uint32(quoteDecimals))
	if err != nil {
		return err
	}
	baseScale, err := fixedpoint.TryPow10(uint32(baseDecimals))
	if err != nil {
		return err
	}
	scaled, err := price.TryMul(quoteScale)
	if err != nil {
		return err
	}
	rebased, err := scaled.TryDiv(baseScale)
	if err != nil {
		return err
	}
	s.MarketPrice = rebased
	return nil
}

// CheckAndUpdateMarketPriceAndSlot guards against replaying an old
// observation: slots older than the last accepted one are rejected,
// same-slot re-reads are accepted (they are idempotent), and accepted
// observations become the new checkpoint.
func (s *State) CheckAndUpdateMarketPriceAndSlot(price fixedpoint.Decimal, slot uint64) error {
	if slot < s.LastValidMarketPriceSlot {
		return fmt.Errorf("%w: slot %d behind checkpoint %d", ErrStaleMarketPrice, slot, s.LastValidMarketPriceSlot)
	}
	s.LastMarketPrice = price
	s.LastValidMarketPriceSlot = slot
	return nil
}

// BuyShares prices a two-sided contribution and commits it, returning
// the minted share count and the token amounts actually accepted. At
// bootstrap the whole contribution is accepted and valued in quote
// units; afterwards the contribution is clipped to the reserve ratio on
// its limiting side, so a ratio-exact contribution is accepted in full.
func (s *State) BuyShares(baseAmount, quoteAmount uint64) (mint, baseAccepted, quoteAccepted uint64, err error) {
	if baseAmount == 0 && quoteAmount == 0 {
		return 0, 0, 0, fmt.Errorf("%w: empty contribution", ErrInsufficientLiquidity)
	}

	base := fixedpoint.New(baseAmount)
	quote := fixedpoint.New(quoteAmount)

	if s.TotalSupply == 0 {
		mint, err = s.bootstrapShares(base, quote)
		if err != nil {
			return 0, 0, 0, err
		}
		baseAccepted, quoteAccepted = baseAmount, quoteAmount
	} else {
		mint, baseAccepted, quoteAccepted, err = s.proRataShares(base, quote)
		if err != nil {
			return 0, 0, 0, err
		}
	}

	if mint > math.MaxUint64-s.TotalSupply {
		return 0, 0, 0, fmt.Errorf("%w: supply overflow minting %d", ErrInconsistentSupply, mint)
	}
	if s.BaseReserve, err = s.BaseReserve.TryAdd(fixedpoint.New(baseAccepted)); err != nil {
		return 0, 0, 0, err
	}
	if s.QuoteReserve, err = s.QuoteReserve.TryAdd(fixedpoint.New(quoteAccepted)); err != nil {
		return 0, 0, 0, err
	}
	s.TotalSupply += mint
	return mint, baseAccepted, quoteAccepted, nil
}

// bootstrapShares values the first contribution in quote units:
// base*price + quote.
func (s *State) bootstrapShares(base, quote fixedpoint.Decimal) (uint64, error) {
	baseValue, err := base.TryMul(s.MarketPrice)
	if err != nil {
		return 0, err
	}
	value, err := baseValue.TryAdd(quote)
	if err != nil {
		return 0, err
	}
	mint, err := value.TryFloor()
	if err != nil {
		return 0, err
	}
	if mint == 0 {
		return 0, fmt.Errorf("%w: bootstrap contribution too small", ErrInsufficientLiquidity)
	}
	return mint, nil
}

func (s *State) proRataShares(base, quote fixedpoint.Decimal) (mint, baseAccepted, quoteAccepted uint64, err error) {
	if s.BaseReserve.IsZero() || s.QuoteReserve.IsZero() {
		return 0, 0, 0, fmt.Errorf("%w: empty reserve", ErrInsufficientLiquidity)
	}

	// The limiting side is accepted in full; the other side is clipped
	// to the current reserve ratio.
	baseCross, err := base.TryMul(s.QuoteReserve)
	if err != nil {
		return 0, 0, 0, err
	}
	quoteCross, err := quote.TryMul(s.BaseReserve)
	if err != nil {
		return 0, 0, 0, err
	}

	supply := fixedpoint.New(s.TotalSupply)
	if baseCross.Cmp(quoteCross) <= 0 {
		baseFloor, ferr := base.TryFloor()
		if ferr != nil {
			return 0, 0, 0, ferr
		}
		baseAccepted = baseFloor
		quoteClip, derr := baseCross.TryDiv(s.BaseReserve)
		if derr != nil {
			return 0, 0, 0, derr
		}
		if quoteAccepted, err = quoteClip.TryFloor(); err != nil {
			return 0, 0, 0, err
		}
		mint, err = proRata(base, supply, s.BaseReserve)
	} else {
		quoteFloor, ferr := quote.TryFloor()
		if ferr != nil {
			return 0, 0, 0, ferr
		}
		quoteAccepted = quoteFloor
		baseClip, derr := quoteCross.TryDiv(s.QuoteReserve)
		if derr != nil {
			return 0, 0, 0, derr
		}
		if baseAccepted, err = baseClip.TryFloor(); err != nil {
			return 0, 0, 0, err
		}
		mint, err = proRata(quote, supply, s.QuoteReserve)
	}
	if err != nil {
		return 0, 0, 0, err
	}
	if mint == 0 {
		return 0, 0, 0, fmt.Errorf("%w: contribution too small", ErrInsufficientLiquidity)
	}
	return mint, baseAccepted, quoteAccepted, nil
}

// proRata computes amount*total/reserve, truncating.
func proRata(amount, total, reserve fixedpoint.Decimal) (uint64, error) {
	scaled, err := amount.TryMul(total)
	if err != nil {
		return 0, err
	}
	share, err := scaled.TryDiv(reserve)
	if err != nil {
		return 0, err
	}
	return share.TryFloor()
}

// SellShares redeems shares pro rata against both reserves and commits
// the burn. Outputs below the caller's floors fail with
// ErrExceededSlippage before any mutation.
func (s *State) SellShares(shareAmount, minBaseOut, minQuoteOut uint64) (baseOut, quoteOut uint64, err error) {
	if shareAmount == 0 || shareAmount > s.TotalSupply {
		return 0, 0, fmt.Errorf("%w: share amount %d of supply %d", ErrInsufficientLiquidity, shareAmount, s.TotalSupply)
	}

	share := fixedpoint.New(shareAmount)
	supply := fixedpoint.New(s.TotalSupply)

	if baseOut, err = proRata(share, s.BaseReserve, supply); err != nil {
		return 0, 0, err
	}
	if quoteOut, err = proRata(share, s.QuoteReserve, supply); err != nil {
		return 0, 0, err
	}
	if baseOut < minBaseOut || quoteOut < minQuoteOut {
		return 0, 0, fmt.Errorf("%w: outputs %d/%d below floors %d/%d",
			ErrExceededSlippage, baseOut, quoteOut, minBaseOut, minQuoteOut)
	}

	if s.BaseReserve, err = s.BaseReserve.TrySub(fixedpoint.New(baseOut)); err != nil {
		return 0, 0, err
	}
	if s.QuoteReserve, err = s.QuoteReserve.TrySub(fixedpoint.New(quoteOut)); err != nil {
		return 0, 0, err
	}
	s.TotalSupply -= shareAmount
	return baseOut, quoteOut, nil
}

// Swap commits a priced trade: the input-side reserve grows by
// amountIn, the output-side reserve shrinks by amountOutGross (the
// trader's payout plus the admin fee, both of which leave the pool).
func (s *State) Swap(amountIn, amountOutGross uint64, direction Direction) error {
	in := fixedpoint.New(amountIn)
	out := fixedpoint.New(amountOutGross)

	switch direction {
	case SellBase:
		grown, err := s.BaseReserve.TryAdd(in)
		if err != nil {
			return err
		}
		shrunk, err := s.QuoteReserve.TrySub(out)
		if err != nil {
			return fmt.Errorf("%w: quote reserve short of %d", ErrInsufficientLiquidity, amountOutGross)
		}
		s.BaseReserve, s.QuoteReserve = grown, shrunk
	case SellQuote:
		grown, err := s.QuoteReserve.TryAdd(in)
		if err != nil {
			return err
		}
		shrunk, err := s.BaseReserve.TrySub(out)
		if err != nil {
			return fmt.Errorf("%w: base reserve short of %d", ErrInsufficientLiquidity, amountOutGross)
		}
		s.QuoteReserve, s.BaseReserve = grown, shrunk
	default:
		return fmt.Errorf("unknown swap direction %d", direction)
	}
	return nil
}

// CollectTradeFee folds the LP-retained fee portion back into the
// reserves, raising the value backing existing shares.
func (s *State) CollectTradeFee(baseFee, quoteFee uint64) error {
	grown, err := s.BaseReserve.TryAdd(fixedpoint.New(baseFee))
	if err != nil {
		return err
	}
	s.BaseReserve = grown
	if grown, err = s.QuoteReserve.TryAdd(fixedpoint.New(quoteFee)); err != nil {
		return err
	}
	s.QuoteReserve = grown
	return nil
}

// CheckReserveAmount asserts internal bookkeeping matches the external
// token balances after a mutation. Fail-closed: a mismatch voids the
// whole operation.
func (s *State) CheckReserveAmount(baseReserveNow, quoteReserveNow uint64) error {
	base, err := s.BaseReserve.TryFloor()
	if err != nil {
		return err
	}
	quote, err := s.QuoteReserve.TryFloor()
	if err != nil {
		return err
	}
	if base != baseReserveNow || quote != quoteReserveNow {
		return fmt.Errorf("%w: tracked %d/%d external %d/%d",
			ErrInconsistentReserve, base, quote, baseReserveNow, quoteReserveNow)
	}
	return nil
}

// CheckSwapOutAmount bounds a single trade to limitPercentage of the
// output-side reserve.
func (s *State) CheckSwapOutAmount(amountOut uint64, direction Direction, limitPercentage uint8) error {
	reserve := s.QuoteReserve
	if direction == SellQuote {
		reserve = s.BaseReserve
	}
	scaled, err := reserve.TryMul(fixedpoint.New(uint64(limitPercentage)))
	if err != nil {
		return err
	}
	limitDec, err := scaled.TryDiv(fixedpoint.New(100))
	if err != nil {
		return err
	}
	limit, err := limitDec.TryFloor()
	if err != nil {
		return err
	}
	if amountOut > limit {
		return fmt.Errorf("%w: %d above %d%% of reserve (%d)",
			ErrExceededSwapOutLimit, amountOut, limitPercentage, limit)
	}
	return nil
}

// CheckMintSupply asserts the tracked share supply matches the external
// share-token supply after a mint or burn.
func (s *State) CheckMintSupply(externalSupply uint64) error {
	if s.TotalSupply != externalSupply {
		return fmt.Errorf("%w: tracked %d external %d", ErrInconsistentSupply, s.TotalSupply, externalSupply)
	}
	return nil
}
