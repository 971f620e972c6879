package fees

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/deltafi-trade/swap-core/internal/fixedpoint"
)

// ErrInvalidRate is returned for a rate with a zero denominator or a
// fraction above one.
var ErrInvalidRate = errors.New("invalid fee rate")

// Fees holds the pool's fee schedule. Every fraction is in [0,1]; the
// admin share is a cut of the base fee, not of the principal.
type Fees struct {
	TradeFeeNumerator           uint64 `json:"trade_fee_numerator"`
	TradeFeeDenominator         uint64 `json:"trade_fee_denominator"`
	AdminTradeFeeNumerator      uint64 `json:"admin_trade_fee_numerator"`
	AdminTradeFeeDenominator    uint64 `json:"admin_trade_fee_denominator"`
	WithdrawFeeNumerator        uint64 `json:"withdraw_fee_numerator"`
	WithdrawFeeDenominator      uint64 `json:"withdraw_fee_denominator"`
	AdminWithdrawFeeNumerator   uint64 `json:"admin_withdraw_fee_numerator"`
	AdminWithdrawFeeDenominator uint64 `json:"admin_withdraw_fee_denominator"`
}

// Validate checks every rate is a well-formed fraction in [0,1].
func (f Fees) Validate() error {
	rates := []struct {
		name       string
		num, denom uint64
	}{
		{"trade_fee", f.TradeFeeNumerator, f.TradeFeeDenominator},
		{"admin_trade_fee", f.AdminTradeFeeNumerator, f.AdminTradeFeeDenominator},
		{"withdraw_fee", f.WithdrawFeeNumerator, f.WithdrawFeeDenominator},
		{"admin_withdraw_fee", f.AdminWithdrawFeeNumerator, f.AdminWithdrawFeeDenominator},
	}
	for _, r := range rates {
		if r.denom == 0 {
			return fmt.Errorf("%w: %s denominator is zero", ErrInvalidRate, r.name)
		}
		if r.num > r.denom {
			return fmt.Errorf("%w: %s %d/%d above one", ErrInvalidRate, r.name, r.num, r.denom)
		}
	}
	return nil
}

// TradeFee is the total fee carved out of a trade's receive amount.
func (f Fees) TradeFee(receiveAmount uint64) (uint64, error) {
	return mulDiv(receiveAmount, f.TradeFeeNumerator, f.TradeFeeDenominator)
}

// AdminTradeFee is the protocol's cut of a trade fee.
func (f Fees) AdminTradeFee(tradeFee uint64) (uint64, error) {
	return mulDiv(tradeFee, f.AdminTradeFeeNumerator, f.AdminTradeFeeDenominator)
}

// WithdrawFee is the total fee carved out of a withdrawal output.
func (f Fees) WithdrawFee(outAmount uint64) (uint64, error) {
	return mulDiv(outAmount, f.WithdrawFeeNumerator, f.WithdrawFeeDenominator)
}

// AdminWithdrawFee is the protocol's cut of a withdraw fee.
func (f Fees) AdminWithdrawFee(withdrawFee uint64) (uint64, error) {
	return mulDiv(withdrawFee, f.AdminWithdrawFeeNumerator, f.AdminWithdrawFeeDenominator)
}

// mulDiv computes amount*num/denom with a 256-bit intermediate,
// truncating.
func mulDiv(amount, num, denom uint64) (uint64, error) {
	if denom == 0 {
		return 0, fmt.Errorf("%w: division by zero", fixedpoint.ErrCalculation)
	}
	var r uint256.Int
	r.MulDivOverflow(uint256.NewInt(amount), uint256.NewInt(num), uint256.NewInt(denom))
	if !r.IsUint64() {
		return 0, fmt.Errorf("%w: result overflows u64", fixedpoint.ErrCalculation)
	}
	return r.Uint64(), nil
}
