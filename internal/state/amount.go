package state

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
)

// MaxAmount is the ceiling for any token amount, 10^32 - 1 (spec §3).
var MaxAmount = new(big.Int).Sub(new(big.Int).Exp(big.NewInt(10), big.NewInt(32), nil), big.NewInt(1))

var decimalDigits = regexp.MustCompile(`^[0-9]+$`)

// Amount is an arbitrary-precision non-negative integer in the token's
// smallest unit, represented on the wire as decimal text.
type Amount struct {
	v *big.Int
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{v: big.NewInt(0)}

// ParseAmount validates s is non-empty decimal digits and 1 <= value <=
// MaxAmount (spec §4.4's amount-field clause). Use ParseAmountAllowZero for
// fields that may legitimately be zero.
func ParseAmount(s string) (Amount, error) {
	a, err := ParseAmountAllowZero(s)
	if err != nil {
		return Amount{}, err
	}
	if a.v.Sign() == 0 {
		return Amount{}, kerrors.Reject(kerrors.KindInvalidAmount, "amount must be >= 1")
	}
	return a, nil
}

// ParseAmountAllowZero validates s is non-empty decimal digits and
// 0 <= value <= MaxAmount.
func ParseAmountAllowZero(s string) (Amount, error) {
	if s == "" || !decimalDigits.MatchString(s) {
		return Amount{}, kerrors.Reject(kerrors.KindInvalidAmount, fmt.Sprintf("not a decimal amount: %q", s))
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, kerrors.Reject(kerrors.KindInvalidAmount, fmt.Sprintf("not a decimal amount: %q", s))
	}
	if v.Cmp(MaxAmount) > 0 {
		return Amount{}, kerrors.Reject(kerrors.KindInvalidAmount, "amount exceeds 10^32-1")
	}
	return Amount{v: v}, nil
}

// AmountFromUint64 builds an Amount from a non-negative machine integer,
// used for internal bookkeeping (e.g. decimals bounds) where overflow is
// never a concern.
func AmountFromUint64(u uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(u)}
}

func (a Amount) big() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// String renders the canonical decimal text form.
func (a Amount) String() string { return a.big().String() }

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.big().Sign() == 0 }

// Sign returns -1, 0 or 1.
func (a Amount) Sign() int { return a.big().Sign() }

// Cmp compares a to b.
func (a Amount) Cmp(b Amount) int { return a.big().Cmp(b.big()) }

// Add returns a+b, clamped to never be negative (callers must not construct
// negative amounts; this type has no signed representation).
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.big(), b.big())}
}

// Sub returns a-b. If b > a the result is zero (used for "cannot underflow"
// clauses such as burn decrementing token.minted, spec §4.4).
func (a Amount) Sub(b Amount) Amount {
	if a.Cmp(b) < 0 {
		return ZeroAmount
	}
	return Amount{v: new(big.Int).Sub(a.big(), b.big())}
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Clamp returns a if a <= max, else max.
func (a Amount) Clamp(max Amount) Amount {
	return Min(a, max)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.big().String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: amount not a string", kerrors.ErrKvCorrupt)
	}
	if s == "" {
		a.v = big.NewInt(0)
		return nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("%w: bad amount %q", kerrors.ErrKvCorrupt, s)
	}
	a.v = v
	return nil
}
