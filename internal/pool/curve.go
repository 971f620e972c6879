package pool

import (
	"fmt"

	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

// The bonding curve prices the marginal unit at
//
//	P(b) = i * (1 - k + k*(B/b)^2)
//
// with the equilibrium re-anchored to the reserves at trade start.
// Integrating over the trade gives the closed forms used below:
//
//	sell base dB:   dQ = i * dB * (1 - k*dB/(B+dB))
//	sell quote dQ:  dB = (dQ/i) * (1 - k*dQ/(Q+dQ))
//
// Slope k=0 collapses to the oracle peg dQ = i*dB; k=1 with i=Q/B is
// exactly constant product. Both forms are monotone in the input and
// zero at zero.

// GetOutAmount solves the curve for a one-sided trade, truncating to a
// raw token amount. It does not mutate state; Swap commits.
func (s *State) GetOutAmount(amountIn uint64, direction Direction) (uint64, error) {
	if amountIn == 0 {
		return 0, nil
	}
	switch direction {
	case SellBase:
		return s.outForBase(amountIn)
	case SellQuote:
		return s.outForQuote(amountIn)
	default:
		return 0, fmt.Errorf("unknown swap direction %d", direction)
	}
}

func (s *State) outForBase(amountIn uint64) (uint64, error) {
	in := fixedpoint.New(amountIn)

	damping, err := s.curveDamping(in, s.BaseReserve)
	if err != nil {
		return 0, err
	}
	value, err := s.MarketPrice.TryMul(in)
	if err != nil {
		return 0, err
	}
	out, err := value.TryMul(damping)
	if err != nil {
		return 0, err
	}
	return out.TryFloor()
}

func (s *State) outForQuote(amountIn uint64) (uint64, error) {
	in := fixedpoint.New(amountIn)

	damping, err := s.curveDamping(in, s.QuoteReserve)
	if err != nil {
		return 0, err
	}
	value, err := in.TryDiv(s.MarketPrice)
	if err != nil {
		return 0, err
	}
	out, err := value.TryMul(damping)
	if err != nil {
		return 0, err
	}
	return out.TryFloor()
}

// curveDamping computes 1 - k*dIn/(reserve+dIn), the price-impact
// factor applied to the pegged value of the trade.
func (s *State) curveDamping(in, reserve fixedpoint.Decimal) (fixedpoint.Decimal, error) {
	grown, err := reserve.TryAdd(in)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	impact, err := s.Slope.TryMul(in)
	if err != nil {
		return fixedpoint.Zero(), err
	}
	if impact, err = impact.TryDiv(grown); err != nil {
		return fixedpoint.Zero(), err
	}
	return fixedpoint.One().TrySub(impact)
}
