package oracle

import "errors"

var (
	// ErrInvalidPythConfig covers malformed or non-tradable Pyth
	// accounts: bad magic/version/type, a price that is not in Trading
	// status, too few active publishers, or a negative price.
	ErrInvalidPythConfig = errors.New("invalid pyth config")

	// ErrStalePythPrice is returned when the price observation is 10 or
	// more slots behind the current slot.
	ErrStalePythPrice = errors.New("stale pyth price")

	// ErrInconfidentPythPrice is returned when the confidence interval
	// exceeds 2% of the price.
	ErrInconfidentPythPrice = errors.New("inconfident pyth price")

	// ErrUnstableMarketPrice is returned when the aggregate price moved
	// more than 1% against the previous aggregate.
	ErrUnstableMarketPrice = errors.New("unstable market price")

	// ErrInvalidSerumData is returned for malformed order-book account
	// data or an empty book side.
	ErrInvalidSerumData = errors.New("invalid serum data")

	// ErrInvalidSerumMarketAccounts is returned when the supplied
	// market/bids/asks accounts do not match the fingerprint recorded at
	// pool initialization.
	ErrInvalidSerumMarketAccounts = errors.New("invalid serum market accounts")

	// ErrInvalidSerumMarketMintAddress is returned when the order book's
	// base/quote mints differ from the pool's token mints.
	ErrInvalidSerumMarketMintAddress = errors.New("invalid serum market mint address")

	// ErrInvalidPythProgramID is returned when a Pyth account is not
	// owned by the configured oracle program.
	ErrInvalidPythProgramID = errors.New("invalid pyth program id")

	// ErrInvalidSerumProgramID is returned when an order-book account is
	// not owned by the configured dex program.
	ErrInvalidSerumProgramID = errors.New("invalid serum program id")

	// ErrUnsupportedOraclePriority is returned for a priority flag that
	// selects neither Pyth nor Serum mode.
	ErrUnsupportedOraclePriority = errors.New("unsupported oracle priority")
)
