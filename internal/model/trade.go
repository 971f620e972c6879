package model

import (
	"time"

	"github.com/deltafi-trade/swap-core/internal/account"
)

// TradeRecord is one executed trade, as journaled and persisted.
type TradeRecord struct {
	Pool           account.Key `json:"pool"`
	Owner          account.Key `json:"owner"`
	Direction      string      `json:"direction"`
	AmountIn       uint64      `json:"amount_in"`
	AmountOut      uint64      `json:"amount_out"`
	TradeFee       uint64      `json:"trade_fee"`
	AdminFee       uint64      `json:"admin_fee"`
	Reward         uint64      `json:"reward"`
	ReferralReward uint64      `json:"referral_reward"`
	MarketPrice    string      `json:"market_price"`
	Slot           uint64      `json:"slot"`
	ExecutedAt     time.Time   `json:"executed_at"`
}

// PoolSnapshot is the persisted view of a pool's state after an
// operation.
type PoolSnapshot struct {
	Pool         account.Key `json:"pool"`
	BaseMint     account.Key `json:"base_mint"`
	QuoteMint    account.Key `json:"quote_mint"`
	SwapType     string      `json:"swap_type"`
	BaseReserve  uint64      `json:"base_reserve"`
	QuoteReserve uint64      `json:"quote_reserve"`
	TotalSupply  uint64      `json:"total_supply"`
	MarketPrice  string      `json:"market_price"`
	Slot         uint64      `json:"slot"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
