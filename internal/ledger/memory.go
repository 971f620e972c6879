package ledger

import (
	"errors"
	"fmt"

	"github.com/deltafi-trade/swap-core/internal/account"
)

var (
	// ErrUnknownAccount is returned for operations on an account that
	// was never created.
	ErrUnknownAccount = errors.New("unknown token account")

	// ErrMintMismatch is returned when a transfer crosses mints or a
	// mint/burn targets an account of another mint.
	ErrMintMismatch = errors.New("token mint mismatch")

	// ErrInsufficientBalance is returned on overdraft.
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// TokenAccount is one balance entry in the in-memory ledger.
type TokenAccount struct {
	Mint    account.Key `json:"mint"`
	Balance uint64      `json:"balance"`
}

// Memory is an in-memory token ledger. It backs the simulator and the
// engine tests; every mutation is atomic and overdrafts are rejected.
// The struct is JSON-serializable so a simulation can be checkpointed
// to disk between commands.
type Memory struct {
	Accounts map[string]*TokenAccount `json:"accounts"`
	Supplies map[string]uint64        `json:"supplies"`
}

// NewMemory builds an empty ledger.
func NewMemory() *Memory {
	return &Memory{
		Accounts: make(map[string]*TokenAccount),
		Supplies: make(map[string]uint64),
	}
}

// CreateAccount registers a token account for a mint. Creating an
// existing account is an error.
func (m *Memory) CreateAccount(key, mint account.Key) error {
	if _, ok := m.Accounts[key.String()]; ok {
		return fmt.Errorf("account %s already exists", key)
	}
	m.Accounts[key.String()] = &TokenAccount{Mint: mint}
	return nil
}

func (m *Memory) get(key account.Key) (*TokenAccount, error) {
	acc, ok := m.Accounts[key.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccount, key)
	}
	return acc, nil
}

// Transfer moves amount between two accounts of the same mint.
func (m *Memory) Transfer(from, to account.Key, amount uint64) error {
	src, err := m.get(from)
	if err != nil {
		return err
	}
	dst, err := m.get(to)
	if err != nil {
		return err
	}
	if src.Mint != dst.Mint {
		return fmt.Errorf("%w: %s -> %s", ErrMintMismatch, src.Mint, dst.Mint)
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientBalance, src.Balance, amount)
	}
	src.Balance -= amount
	dst.Balance += amount
	return nil
}

// MintTo creates amount new tokens in dest, growing the mint's supply.
// The dest account is created on demand for convenience.
func (m *Memory) MintTo(mint, dest account.Key, amount uint64) error {
	acc, ok := m.Accounts[dest.String()]
	if !ok {
		acc = &TokenAccount{Mint: mint}
		m.Accounts[dest.String()] = acc
	}
	if acc.Mint != mint {
		return fmt.Errorf("%w: account holds %s", ErrMintMismatch, acc.Mint)
	}
	acc.Balance += amount
	m.Supplies[mint.String()] += amount
	return nil
}

// Burn destroys amount tokens held by source, shrinking the supply.
func (m *Memory) Burn(mint, source account.Key, amount uint64) error {
	acc, err := m.get(source)
	if err != nil {
		return err
	}
	if acc.Mint != mint {
		return fmt.Errorf("%w: account holds %s", ErrMintMismatch, acc.Mint)
	}
	if acc.Balance < amount {
		return fmt.Errorf("%w: %d < %d", ErrInsufficientBalance, acc.Balance, amount)
	}
	acc.Balance -= amount
	m.Supplies[mint.String()] -= amount
	return nil
}

// Balance reports an account's current balance.
func (m *Memory) Balance(key account.Key) (uint64, error) {
	acc, err := m.get(key)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Supply reports a mint's outstanding supply.
func (m *Memory) Supply(mint account.Key) (uint64, error) {
	return m.Supplies[mint.String()], nil
}

// Referrals is an in-memory, JSON-serializable referral registry.
type Referrals struct {
	Records map[string]account.Key `json:"records"`
}

// NewReferrals builds an empty registry.
func NewReferrals() *Referrals {
	return &Referrals{Records: make(map[string]account.Key)}
}

// Get returns the recorded referrer for owner, if any.
func (r *Referrals) Get(owner account.Key) (account.Key, bool, error) {
	ref, ok := r.Records[owner.String()]
	return ref, ok, nil
}

// Set records owner's referrer. The engine enforces write-once above
// this layer; the store simply overwrites.
func (r *Referrals) Set(owner, referrer account.Key) error {
	r.Records[owner.String()] = referrer
	return nil
}
