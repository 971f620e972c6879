package engine

import (
	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/fees"
	"github.com/deltafi-trade/swap-core/internal/oracle"
	"github.com/deltafi-trade/swap-core/internal/pool"
)

// SwapType distinguishes oracle-priced pools from stable pools pinned
// to a unit price.
type SwapType uint8

const (
	SwapTypeNormal SwapType = iota
	SwapTypeStable
)

func (t SwapType) String() string {
	switch t {
	case SwapTypeNormal:
		return "normal"
	case SwapTypeStable:
		return "stable"
	default:
		return "unknown"
	}
}

// DefaultSwapOutLimitPercentage bounds how much of a reserve a single
// trade may drain when a pool does not configure its own limit.
const DefaultSwapOutLimitPercentage uint8 = 10

// PoolInfo is the persisted record of one pool: its pair, its oracle
// binding, its fee schedule, and the pricing state. The engine receives
// it with exclusive ownership for the duration of one call.
type PoolInfo struct {
	IsInitialized bool     `json:"is_initialized"`
	IsPaused      bool     `json:"is_paused"`
	SwapType      SwapType `json:"swap_type"`

	BaseMint   account.Key `json:"base_mint"`
	QuoteMint  account.Key `json:"quote_mint"`
	BaseVault  account.Key `json:"base_vault"`
	QuoteVault account.Key `json:"quote_vault"`
	PoolMint   account.Key `json:"pool_mint"`

	AdminFeeBase  account.Key `json:"admin_fee_base"`
	AdminFeeQuote account.Key `json:"admin_fee_quote"`

	OraclePriority   oracle.Priority `json:"oracle_priority"`
	PythBasePrice    account.Key     `json:"pyth_base_price"`
	PythQuotePrice   account.Key     `json:"pyth_quote_price"`
	SerumFingerprint account.Key     `json:"serum_fingerprint"`

	BaseDecimals           uint8 `json:"base_decimals"`
	QuoteDecimals          uint8 `json:"quote_decimals"`
	SwapOutLimitPercentage uint8 `json:"swap_out_limit_percentage"`

	Fees    fees.Fees    `json:"fees"`
	Rewards fees.Rewards `json:"rewards"`

	State *pool.State `json:"pool_state"`
}

// direction maps the caller's source/destination mints onto the pool's
// pair.
func (p *PoolInfo) direction(sourceMint, destinationMint account.Key) (pool.Direction, error) {
	switch {
	case sourceMint == p.BaseMint && destinationMint == p.QuoteMint:
		return pool.SellBase, nil
	case sourceMint == p.QuoteMint && destinationMint == p.BaseMint:
		return pool.SellQuote, nil
	default:
		return 0, ErrIncorrectMint
	}
}

// adminFeeDestination is the admin fee account on the trade's output
// side.
func (p *PoolInfo) adminFeeDestination(direction pool.Direction) account.Key {
	if direction == pool.SellBase {
		return p.AdminFeeQuote
	}
	return p.AdminFeeBase
}

// vaults returns (input vault, output vault) for a trade direction.
func (p *PoolInfo) vaults(direction pool.Direction) (account.Key, account.Key) {
	if direction == pool.SellBase {
		return p.BaseVault, p.QuoteVault
	}
	return p.QuoteVault, p.BaseVault
}
