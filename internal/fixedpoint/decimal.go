package fixedpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// WadDecimals is the number of fractional digits carried by a Decimal.
const WadDecimals = 18

// ErrCalculation is returned by every operation that would overflow,
// underflow below zero, or divide by zero.
var ErrCalculation = errors.New("calculation failure")

var wad = uint256.NewInt(1_000_000_000_000_000_000)

// Decimal is a non-negative fixed-point number scaled by 10^18 (WAD),
// backed by a 256-bit integer so multiply-then-divide chains cannot
// overflow for any pair of in-range operands. Division truncates toward
// zero; callers rely on that uniformly.
type Decimal struct {
	v uint256.Int
}

// Zero returns the Decimal 0.
func Zero() Decimal {
	return Decimal{}
}

// One returns the Decimal 1.
func One() Decimal {
	var d Decimal
	d.v.Set(wad)
	return d
}

// New returns the Decimal representing the integer n.
func New(n uint64) Decimal {
	var d Decimal
	d.v.Mul(uint256.NewInt(n), wad)
	return d
}

// NewFromInt returns the Decimal representing the wide integer n.
func NewFromInt(n *uint256.Int) (Decimal, error) {
	var d Decimal
	if _, overflow := d.v.MulOverflow(n, wad); overflow {
		return Zero(), fmt.Errorf("%w: scale %s", ErrCalculation, n.Dec())
	}
	return d, nil
}

// FromScaled returns the Decimal whose scaled (WAD) representation is v.
func FromScaled(v *uint256.Int) Decimal {
	var d Decimal
	d.v.Set(v)
	return d
}

// FromScaledU64 returns the Decimal whose scaled representation is v.
func FromScaledU64(v uint64) Decimal {
	var d Decimal
	d.v.SetUint64(v)
	return d
}

// ToScaled returns a copy of the scaled (WAD) representation.
func (d Decimal) ToScaled() *uint256.Int {
	return new(uint256.Int).Set(&d.v)
}

// TryAdd returns d + o.
func (d Decimal) TryAdd(o Decimal) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.AddOverflow(&d.v, &o.v); overflow {
		return Zero(), fmt.Errorf("%w: add overflow", ErrCalculation)
	}
	return r, nil
}

// TrySub returns d - o, failing if the result would be negative.
func (d Decimal) TrySub(o Decimal) (Decimal, error) {
	var r Decimal
	if _, underflow := r.v.SubOverflow(&d.v, &o.v); underflow {
		return Zero(), fmt.Errorf("%w: sub underflow", ErrCalculation)
	}
	return r, nil
}

// TryMul returns d * o. The 512-bit intermediate product is divided by
// WAD before the overflow check, so any product that fits 256 bits is
// representable.
func (d Decimal) TryMul(o Decimal) (Decimal, error) {
	var r Decimal
	if _, overflow := r.v.MulDivOverflow(&d.v, &o.v, wad); overflow {
		return Zero(), fmt.Errorf("%w: mul overflow", ErrCalculation)
	}
	return r, nil
}

// TryDiv returns d / o, truncated toward zero.
func (d Decimal) TryDiv(o Decimal) (Decimal, error) {
	if o.v.IsZero() {
		return Zero(), fmt.Errorf("%w: division by zero", ErrCalculation)
	}
	var r Decimal
	if _, overflow := r.v.MulDivOverflow(&d.v, wad, &o.v); overflow {
		return Zero(), fmt.Errorf("%w: div overflow", ErrCalculation)
	}
	return r, nil
}

// TryFloor converts d to an integer token amount, truncating the
// fractional part.
func (d Decimal) TryFloor() (uint64, error) {
	q := new(uint256.Int).Div(&d.v, wad)
	if !q.IsUint64() {
		return 0, fmt.Errorf("%w: floor overflows u64", ErrCalculation)
	}
	return q.Uint64(), nil
}

// TryPow10 returns 10^n as a Decimal.
func TryPow10(n uint32) (Decimal, error) {
	r := uint256.NewInt(1)
	ten := uint256.NewInt(10)
	for i := uint32(0); i < n; i++ {
		if _, overflow := r.MulOverflow(r, ten); overflow {
			return Zero(), fmt.Errorf("%w: pow10(%d) overflow", ErrCalculation, n)
		}
	}
	return NewFromInt(r)
}

// Parse reads a human decimal string like "1.25". At most 18 fractional
// digits are accepted.
func Parse(s string) (Decimal, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > WadDecimals {
		return Zero(), fmt.Errorf("%w: more than %d fractional digits in %q", ErrCalculation, WadDecimals, s)
	}

	var w uint256.Int
	if err := w.SetFromDecimal(whole); err != nil {
		return Zero(), fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if _, overflow := w.MulOverflow(&w, wad); overflow {
		return Zero(), fmt.Errorf("%w: %q out of range", ErrCalculation, s)
	}
	if frac != "" {
		var f uint256.Int
		if err := f.SetFromDecimal(frac + strings.Repeat("0", WadDecimals-len(frac))); err != nil {
			return Zero(), fmt.Errorf("parse decimal %q: %w", s, err)
		}
		if _, overflow := w.AddOverflow(&w, &f); overflow {
			return Zero(), fmt.Errorf("%w: %q out of range", ErrCalculation, s)
		}
	}
	return FromScaled(&w), nil
}

// Cmp compares d and o, returning -1, 0 or +1.
func (d Decimal) Cmp(o Decimal) int {
	return d.v.Cmp(&o.v)
}

// Equal reports whether d and o represent the same value.
func (d Decimal) Equal(o Decimal) bool {
	return d.v.Eq(&o.v)
}

// IsZero reports whether d is zero.
func (d Decimal) IsZero() bool {
	return d.v.IsZero()
}

// String renders d as a decimal number with the fractional part trimmed.
func (d Decimal) String() string {
	var q, r uint256.Int
	q.DivMod(&d.v, wad, &r)
	if r.IsZero() {
		return q.Dec()
	}
	frac := fmt.Sprintf("%018s", r.Dec())
	return q.Dec() + "." + strings.TrimRight(frac, "0")
}

// MarshalJSON encodes the scaled (WAD) representation as a decimal
// string so snapshots survive any JSON number precision limit.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.v.Dec() + `"`), nil
}

// UnmarshalJSON decodes a scaled decimal string.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.v.Clear()
		return nil
	}
	var v uint256.Int
	if err := v.SetFromDecimal(s); err != nil {
		return fmt.Errorf("decode decimal %q: %w", s, err)
	}
	d.v.Set(&v)
	return nil
}
