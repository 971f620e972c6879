package ledger

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/deltafi-trade/swap-core/internal/account"
)

func key(b byte) account.Key {
	var k account.Key
	k[0] = b
	return k
}

func TestMemoryTransfer(t *testing.T) {
	m := NewMemory()
	mint := key(1)
	a, b := key(2), key(3)
	if err := m.CreateAccount(a, mint); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := m.CreateAccount(b, mint); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := m.MintTo(mint, a, 1000); err != nil {
		t.Fatalf("MintTo: %v", err)
	}

	if err := m.Transfer(a, b, 400); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if bal, _ := m.Balance(a); bal != 600 {
		t.Fatalf("balance a = %d, want 600", bal)
	}
	if bal, _ := m.Balance(b); bal != 400 {
		t.Fatalf("balance b = %d, want 400", bal)
	}

	if err := m.Transfer(a, b, 601); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestMemoryMintMismatch(t *testing.T) {
	m := NewMemory()
	if err := m.CreateAccount(key(2), key(1)); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := m.CreateAccount(key(3), key(4)); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := m.MintTo(key(1), key(2), 10); err != nil {
		t.Fatalf("MintTo: %v", err)
	}
	if err := m.Transfer(key(2), key(3), 1); !errors.Is(err, ErrMintMismatch) {
		t.Fatalf("err = %v, want ErrMintMismatch", err)
	}
	if err := m.Burn(key(4), key(2), 1); !errors.Is(err, ErrMintMismatch) {
		t.Fatalf("err = %v, want ErrMintMismatch", err)
	}
}

func TestMemorySupply(t *testing.T) {
	m := NewMemory()
	mint, acc := key(1), key(2)
	if err := m.MintTo(mint, acc, 1000); err != nil {
		t.Fatalf("MintTo: %v", err)
	}
	if supply, _ := m.Supply(mint); supply != 1000 {
		t.Fatalf("supply = %d, want 1000", supply)
	}
	if err := m.Burn(mint, acc, 300); err != nil {
		t.Fatalf("Burn: %v", err)
	}
	if supply, _ := m.Supply(mint); supply != 700 {
		t.Fatalf("supply = %d, want 700", supply)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	mint, acc := key(1), key(2)
	if err := m.MintTo(mint, acc, 42); err != nil {
		t.Fatalf("MintTo: %v", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	restored := NewMemory()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bal, _ := restored.Balance(acc); bal != 42 {
		t.Fatalf("balance = %d, want 42", bal)
	}
	if supply, _ := restored.Supply(mint); supply != 42 {
		t.Fatalf("supply = %d, want 42", supply)
	}
}

func TestReferrals(t *testing.T) {
	r := NewReferrals()
	owner, referrer := key(5), key(6)
	if _, ok, _ := r.Get(owner); ok {
		t.Fatal("unexpected record")
	}
	if err := r.Set(owner, referrer); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, _ := r.Get(owner)
	if !ok || got != referrer {
		t.Fatalf("Get = %s, %v", got, ok)
	}
}
