package pool

import "errors"

var (
	// ErrExceededSlippage is returned when a computed output is below
	// the caller's stated minimum.
	ErrExceededSlippage = errors.New("exceeded slippage")

	// ErrExceededSwapOutLimit is returned when a single trade would
	// drain more than the configured share of a reserve.
	ErrExceededSwapOutLimit = errors.New("exceeded swap out limit")

	// ErrStaleMarketPrice is returned when a price observation is older
	// than the last accepted one.
	ErrStaleMarketPrice = errors.New("stale market price update")

	// ErrInconsistentReserve is returned when internal bookkeeping
	// disagrees with the external token balances.
	ErrInconsistentReserve = errors.New("inconsistent reserve amount")

	// ErrInconsistentSupply is returned when the tracked share supply
	// disagrees with the external mint supply.
	ErrInconsistentSupply = errors.New("inconsistent share supply")

	// ErrInsufficientLiquidity is returned when a contribution or trade
	// is too small to be representable, or a trade would exhaust a
	// reserve.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)
