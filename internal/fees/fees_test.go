package fees

import (
	"errors"
	"testing"
)

func testFees() Fees {
	return Fees{
		TradeFeeNumerator:           5,
		TradeFeeDenominator:         1000,
		AdminTradeFeeNumerator:      20,
		AdminTradeFeeDenominator:    100,
		WithdrawFeeNumerator:        2,
		WithdrawFeeDenominator:      1000,
		AdminWithdrawFeeNumerator:   20,
		AdminWithdrawFeeDenominator: 100,
	}
}

func TestFeesValidate(t *testing.T) {
	if err := testFees().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	f := testFees()
	f.TradeFeeDenominator = 0
	if err := f.Validate(); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("err = %v, want ErrInvalidRate", err)
	}

	f = testFees()
	f.WithdrawFeeNumerator = 1001
	if err := f.Validate(); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("err = %v, want ErrInvalidRate", err)
	}
}

func TestTradeFee(t *testing.T) {
	f := testFees()

	fee, err := f.TradeFee(200_000)
	if err != nil {
		t.Fatalf("TradeFee: %v", err)
	}
	if fee != 1000 {
		t.Fatalf("fee = %d, want 1000", fee)
	}

	adminFee, err := f.AdminTradeFee(fee)
	if err != nil {
		t.Fatalf("AdminTradeFee: %v", err)
	}
	if adminFee != 200 {
		t.Fatalf("admin fee = %d, want 200", adminFee)
	}

	// Truncation favors the trader on the fee, the pool on the rest.
	fee, err = f.TradeFee(199)
	if err != nil {
		t.Fatalf("TradeFee: %v", err)
	}
	if fee != 0 {
		t.Fatalf("fee = %d, want truncated 0", fee)
	}
}

func TestWithdrawFee(t *testing.T) {
	f := testFees()

	fee, err := f.WithdrawFee(500_000)
	if err != nil {
		t.Fatalf("WithdrawFee: %v", err)
	}
	if fee != 1000 {
		t.Fatalf("fee = %d, want 1000", fee)
	}
	adminFee, err := f.AdminWithdrawFee(fee)
	if err != nil {
		t.Fatalf("AdminWithdrawFee: %v", err)
	}
	if adminFee != 200 {
		t.Fatalf("admin fee = %d, want 200", adminFee)
	}
}

func testRewards() Rewards {
	return Rewards{
		TradeRewardNumerator:      1,
		TradeRewardDenominator:    1000,
		TradeRewardCap:            5_000,
		ReferralRewardNumerator:   10,
		ReferralRewardDenominator: 100,
		Decimals:                  6,
	}
}

func TestRewardsValidate(t *testing.T) {
	if err := testRewards().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r := testRewards()
	r.ReferralRewardDenominator = 0
	if err := r.Validate(); !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("err = %v, want ErrInvalidRate", err)
	}
}

func TestTradeReward(t *testing.T) {
	r := testRewards()

	// Same scale: 2_000_000 * 1/1000 = 2000.
	reward, err := r.TradeReward(2_000_000, 6)
	if err != nil {
		t.Fatalf("TradeReward: %v", err)
	}
	if reward != 2000 {
		t.Fatalf("reward = %d, want 2000", reward)
	}

	// Cap binds.
	reward, err = r.TradeReward(100_000_000, 6)
	if err != nil {
		t.Fatalf("TradeReward: %v", err)
	}
	if reward != 5_000 {
		t.Fatalf("reward = %d, want cap 5000", reward)
	}
}

func TestTradeRewardRescalesBasis(t *testing.T) {
	r := testRewards()

	// 9-decimal basis shrinks by 1000 before the rate applies.
	reward, err := r.TradeReward(2_000_000_000, 9)
	if err != nil {
		t.Fatalf("TradeReward: %v", err)
	}
	if reward != 2000 {
		t.Fatalf("reward = %d, want 2000", reward)
	}

	// 3-decimal basis grows by 1000.
	reward, err = r.TradeReward(2_000, 3)
	if err != nil {
		t.Fatalf("TradeReward: %v", err)
	}
	if reward != 2000 {
		t.Fatalf("reward = %d, want 2000", reward)
	}
}

func TestReferralReward(t *testing.T) {
	r := testRewards()
	cut, err := r.ReferralReward(2000)
	if err != nil {
		t.Fatalf("ReferralReward: %v", err)
	}
	if cut != 200 {
		t.Fatalf("cut = %d, want 200", cut)
	}
}
