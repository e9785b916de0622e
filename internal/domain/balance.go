package domain

import (
	"fmt"
	"math/big"
)

// maxU128 is 2^128 - 1, the largest balance the contract can represent.
var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// Balance is a u128 token amount. JSON calls pass it as a base-10 string
// per the NEP-141 U128 convention, e.g. "1000000000000000000000000".
type Balance struct {
	i big.Int
}

// NewBalance creates a balance from a uint64.
func NewBalance(v uint64) Balance {
	var b Balance
	b.i.SetUint64(v)
	return b
}

// ParseBalance parses a base-10 string into a balance.
// Rejects negative values, non-numeric input and values above 2^128-1.
func ParseBalance(s string) (Balance, error) {
	var b Balance
	if _, ok := b.i.SetString(s, 10); !ok {
		return Balance{}, fmt.Errorf("parse balance %q: not a base-10 integer", s)
	}
	if b.i.Sign() < 0 {
		return Balance{}, fmt.Errorf("parse balance %q: negative", s)
	}
	if b.i.Cmp(maxU128) > 0 {
		return Balance{}, fmt.Errorf("parse balance %q: exceeds u128", s)
	}
	return b, nil
}

// SupplyUnits returns whole × 10^decimals, the smallest-unit representation
// of a whole-token supply. ITLX: SupplyUnits(1_000_000_000, 24).
func SupplyUnits(whole uint64, decimals int) Balance {
	var b Balance
	b.i.SetUint64(whole)
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	b.i.Mul(&b.i, exp)
	return b
}

// Add returns b + other.
func (b Balance) Add(other Balance) Balance {
	var r Balance
	r.i.Add(&b.i, &other.i)
	return r
}

// Sub returns b - other. Panics if the result would be negative; callers
// must check Cmp first, mirroring the contract's balance checks.
func (b Balance) Sub(other Balance) Balance {
	if b.Cmp(other) < 0 {
		panic("balance underflow")
	}
	var r Balance
	r.i.Sub(&b.i, &other.i)
	return r
}

// WholeTokens returns the balance expressed in whole tokens when it is
// an exact multiple of 10^decimals, and ok=false when smallest units
// remain. A supply failing this was planned with the wrong decimal
// count.
func (b Balance) WholeTokens(decimals int) (whole string, ok bool) {
	exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	q, r := new(big.Int).QuoRem(&b.i, exp, new(big.Int))
	return q.String(), r.Sign() == 0
}

// ExceedsU128 reports whether the balance is above 2^128-1. Sums of two
// valid balances can overflow the contract's representable range, so
// callers check this before committing an Add result.
func (b Balance) ExceedsU128() bool {
	return b.i.Cmp(maxU128) > 0
}

// Min returns the smaller of b and other.
func (b Balance) Min(other Balance) Balance {
	if b.Cmp(other) <= 0 {
		return b
	}
	return other
}

// Cmp compares b and other, returning -1, 0 or 1.
func (b Balance) Cmp(other Balance) int {
	return b.i.Cmp(&other.i)
}

// IsZero reports whether the balance is zero.
func (b Balance) IsZero() bool {
	return b.i.Sign() == 0
}

// Float64 returns an approximate float value for analytics use only.
func (b Balance) Float64() float64 {
	f, _ := new(big.Float).SetInt(&b.i).Float64()
	return f
}

// String returns the base-10 representation.
func (b Balance) String() string {
	return b.i.String()
}

// MarshalJSON encodes the balance as a base-10 JSON string.
func (b Balance) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.i.String() + `"`), nil
}

// UnmarshalJSON decodes a base-10 JSON string.
func (b *Balance) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("balance must be a JSON string, got %s", string(data))
	}
	parsed, err := ParseBalance(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
