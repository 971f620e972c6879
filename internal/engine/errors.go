package engine

import "errors"

var (
	// ErrAlreadyInUse is returned when initializing a pool record that
	// is already initialized.
	ErrAlreadyInUse = errors.New("pool already initialized")

	// ErrNotInitialized is returned when operating on an uninitialized
	// pool record.
	ErrNotInitialized = errors.New("pool not initialized")

	// ErrIsPaused is returned when a trade or deposit hits a paused
	// pool.
	ErrIsPaused = errors.New("pool is paused")

	// ErrIncorrectSwapType is returned when an operation targets the
	// wrong pool kind.
	ErrIncorrectSwapType = errors.New("incorrect swap type")

	// ErrIncorrectMint is returned when the caller's token mints do not
	// map onto the pool's pair.
	ErrIncorrectMint = errors.New("incorrect token mint")

	// ErrRepeatedMint is returned when a pool is initialized with the
	// same mint on both sides.
	ErrRepeatedMint = errors.New("repeated token mint")

	// ErrInvalidSlope is returned for a slope outside [0,1].
	ErrInvalidSlope = errors.New("slope out of range")

	// ErrInvalidInput is returned for structurally invalid parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidOracleAccount is returned when a supplied oracle account
	// is not the one recorded at pool initialization.
	ErrInvalidOracleAccount = errors.New("oracle account mismatch")

	// ErrEmptySupply is returned when withdrawing from a pool whose
	// share supply is zero.
	ErrEmptySupply = errors.New("empty share supply")

	// ErrInconsistentInitialBalance is returned when the declared
	// initial deposit disagrees with the vault balances.
	ErrInconsistentInitialBalance = errors.New("inconsistent initial pool token balance")

	// ErrReferralExists is returned when setting a referrer for an
	// owner that already has one recorded.
	ErrReferralExists = errors.New("referral record already set")
)
