package engine

import "github.com/deltafi-trade/swap-core/internal/account"

// TokenLedger is the external token ledger the engine moves value on.
// Each call must either succeed atomically with the engine's own state
// commit or fail the whole operation; the engine re-derives ground
// truth from Balance/Supply after every mutation rather than trusting
// its own bookkeeping.
type TokenLedger interface {
	// Transfer moves amount between two token accounts of one mint.
	Transfer(from, to account.Key, amount uint64) error
	// MintTo creates amount new tokens of mint in the dest account.
	MintTo(mint, dest account.Key, amount uint64) error
	// Burn destroys amount tokens of mint held by the source account.
	Burn(mint, source account.Key, amount uint64) error
	// Balance reports a token account's current balance.
	Balance(acc account.Key) (uint64, error)
	// Supply reports a mint's total outstanding supply.
	Supply(mint account.Key) (uint64, error)
}

// ReferralStore is the durable registry of trader referrers.
type ReferralStore interface {
	// Get returns the recorded referrer for owner, if any.
	Get(owner account.Key) (account.Key, bool, error)
	// Set records owner's referrer. Records are write-once.
	Set(owner, referrer account.Key) error
}
