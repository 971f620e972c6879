package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deltafi-trade/swap-core/internal/account"
	"github.com/deltafi-trade/swap-core/internal/engine"
	"github.com/deltafi-trade/swap-core/internal/ledger"
)

// simState is the whole simulation: one pool, its token ledger, the
// referral registry and the simulated slot clock. It round-trips
// through the state file between commands.
type simState struct {
	PoolKey   account.Key       `json:"pool_key"`
	Pool      *engine.PoolInfo  `json:"pool"`
	Ledger    *ledger.Memory    `json:"ledger"`
	Referrals *ledger.Referrals `json:"referrals"`
	Slot      uint64            `json:"slot"`
}

func newSimState() *simState {
	return &simState{
		Pool:      &engine.PoolInfo{},
		Ledger:    ledger.NewMemory(),
		Referrals: ledger.NewReferrals(),
	}
}

func loadSimState(path string) (*simState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	state := newSimState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	return state, nil
}

func saveSimState(path string, state *simState) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// deriveKey produces a stable key for a simulation account that the
// caller did not name explicitly.
func deriveKey(labels ...string) account.Key {
	h := sha256.New()
	h.Write([]byte("swapsim"))
	for _, label := range labels {
		h.Write([]byte{0})
		h.Write([]byte(label))
	}
	var k account.Key
	copy(k[:], h.Sum(nil))
	return k
}

// keyFlag decodes a hex key flag, deriving a stable key from the labels
// when the flag is empty.
func keyFlag(value string, labels ...string) (account.Key, error) {
	if value == "" {
		return deriveKey(labels...), nil
	}
	return account.KeyFromHex(value)
}

// accountDump is the on-disk form of a captured oracle account.
type accountDump struct {
	Key   account.Key `json:"key"`
	Owner account.Key `json:"owner"`
	Data  []byte      `json:"data"`
}

// loadAccount reads a captured account from a JSON dump file. An empty
// path yields nil, meaning the account was not supplied.
func loadAccount(path string) (*account.Account, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read account dump: %w", err)
	}
	var dump accountDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parse account dump %s: %w", path, err)
	}
	return &account.Account{Key: dump.Key, Owner: dump.Owner, Data: dump.Data}, nil
}

// loadOracleAccounts reads every supplied oracle dump for a command.
func loadOracleAccounts(pythBaseProduct, pythBasePrice, pythQuoteProduct, pythQuotePrice, serumMarket, serumBids, serumAsks string) (engine.OracleAccounts, error) {
	var accs engine.OracleAccounts
	var err error
	if accs.PythBaseProduct, err = loadAccount(pythBaseProduct); err != nil {
		return accs, err
	}
	if accs.PythBasePrice, err = loadAccount(pythBasePrice); err != nil {
		return accs, err
	}
	if accs.PythQuoteProduct, err = loadAccount(pythQuoteProduct); err != nil {
		return accs, err
	}
	if accs.PythQuotePrice, err = loadAccount(pythQuotePrice); err != nil {
		return accs, err
	}
	if accs.Serum.Market, err = loadAccount(serumMarket); err != nil {
		return accs, err
	}
	if accs.Serum.Bids, err = loadAccount(serumBids); err != nil {
		return accs, err
	}
	if accs.Serum.Asks, err = loadAccount(serumAsks); err != nil {
		return accs, err
	}
	return accs, nil
}
