package account

import (
	"encoding/hex"
	"fmt"
)

// Key is a 32-byte ledger address.
type Key [32]byte

// KeyFromHex parses a 64-character hex string into a Key.
func KeyFromHex(s string) (Key, error) {
	var k Key
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("decode key %q: %w", s, err)
	}
	if len(raw) != len(k) {
		return Key{}, fmt.Errorf("key %q: want %d bytes, got %d", s, len(k), len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// IsZero reports whether k is the all-zero key.
func (k Key) IsZero() bool {
	return k == Key{}
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Key) UnmarshalText(data []byte) error {
	parsed, err := KeyFromHex(string(data))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Account is a read-only view of a ledger account as handed to the
// engine by the transaction runtime: its address, the program that owns
// it, and its raw data.
type Account struct {
	Key   Key
	Owner Key
	Data  []byte
}
