package fees

import (
	"fmt"

	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

// Rewards holds the protocol-token reward schedule for trades. Decimals
// is the reward token's scale; the basis amount is rescaled from the
// traded token's scale before the rate applies.
type Rewards struct {
	TradeRewardNumerator      uint64 `json:"trade_reward_numerator"`
	TradeRewardDenominator    uint64 `json:"trade_reward_denominator"`
	TradeRewardCap            uint64 `json:"trade_reward_cap"`
	ReferralRewardNumerator   uint64 `json:"referral_reward_numerator"`
	ReferralRewardDenominator uint64 `json:"referral_reward_denominator"`
	Decimals                  uint8  `json:"decimals"`
}

// Validate checks both rates are well-formed fractions in [0,1].
func (r Rewards) Validate() error {
	if r.TradeRewardDenominator == 0 {
		return fmt.Errorf("%w: trade_reward denominator is zero", ErrInvalidRate)
	}
	if r.TradeRewardNumerator > r.TradeRewardDenominator {
		return fmt.Errorf("%w: trade_reward %d/%d above one", ErrInvalidRate,
			r.TradeRewardNumerator, r.TradeRewardDenominator)
	}
	if r.ReferralRewardDenominator == 0 {
		return fmt.Errorf("%w: referral_reward denominator is zero", ErrInvalidRate)
	}
	if r.ReferralRewardNumerator > r.ReferralRewardDenominator {
		return fmt.Errorf("%w: referral_reward %d/%d above one", ErrInvalidRate,
			r.ReferralRewardNumerator, r.ReferralRewardDenominator)
	}
	return nil
}

// TradeReward computes min(rate * basis, cap) in reward-token units.
// basisDecimals is the traded token's scale; the basis is rescaled to
// the reward token's scale first.
func (r Rewards) TradeReward(basis uint64, basisDecimals uint8) (uint64, error) {
	scaled, err := r.rescaleBasis(basis, basisDecimals)
	if err != nil {
		return 0, err
	}
	rate, err := fixedpoint.New(r.TradeRewardNumerator).TryDiv(fixedpoint.New(r.TradeRewardDenominator))
	if err != nil {
		return 0, err
	}
	rewardDec, err := scaled.TryMul(rate)
	if err != nil {
		return 0, err
	}
	reward, err := rewardDec.TryFloor()
	if err != nil {
		return 0, err
	}
	return min(reward, r.TradeRewardCap), nil
}

// ReferralReward is the referrer's cut of a trade reward.
func (r Rewards) ReferralReward(reward uint64) (uint64, error) {
	return mulDiv(reward, r.ReferralRewardNumerator, r.ReferralRewardDenominator)
}

func (r Rewards) rescaleBasis(basis uint64, basisDecimals uint8) (fixedpoint.Decimal, error) {
	d := fixedpoint.New(basis)
	if basisDecimals == r.Decimals {
		return d, nil
	}
	if r.Decimals > basisDecimals {
		scale, err := fixedpoint.TryPow10(uint32(r.Decimals - basisDecimals))
		if err != nil {
			return fixedpoint.Zero(), err
		}
		return d.TryMul(scale)
	}
	scale, err := fixedpoint.TryPow10(uint32(basisDecimals - r.Decimals))
	if err != nil {
		return fixedpoint.Zero(), err
	}
	return d.TryDiv(scale)
}
