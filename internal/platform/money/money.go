// Package money implements the fixed-point monetary amounts used across the
// reconciliation pipeline. Amounts carry exactly two fraction digits and are
// stored as an integer count of cents, so arithmetic is exact and ordering is
// plain integer comparison. The reserved sentinel -1.00 means "amount not yet
// determined" and must be excluded from range and reconciliation checks.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a monetary value in cents (two implied fraction digits).
type Amount int64

// Sentinel is the reserved -1.00 placeholder meaning "not yet determined".
// It is distinct from a true negative amount and is skipped by invariant
// checks.
const Sentinel Amount = -100

// Zero is the zero amount.
const Zero Amount = 0

// FromCents builds an Amount from an integer cent count.
func FromCents(c int64) Amount { return Amount(c) }

// FromFloat converts a float dollar value to an Amount, rounding half away
// from zero.
func FromFloat(f float64) Amount {
	if f >= 0 {
		return Amount(int64(f*100 + 0.5))
	}
	return Amount(int64(f*100 - 0.5))
}

// Parse reads a decimal string such as "123.45", "-1.00" or "7" into an
// Amount. At most two fraction digits are accepted.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse amount: empty string")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("parse amount: %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	cents := w * 100
	if hasFrac {
		if len(frac) > 2 {
			return 0, fmt.Errorf("parse amount %q: more than two fraction digits", s)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse amount %q: %w", s, err)
		}
		cents += f
	}
	if neg {
		cents = -cents
	}
	return Amount(cents), nil
}

// IsSentinel reports whether the amount is the -1.00 placeholder.
func (a Amount) IsSentinel() bool { return a == Sentinel }

// Cents returns the raw cent count.
func (a Amount) Cents() int64 { return int64(a) }

// Float64 returns the amount as a float dollar value. Intended for database
// exchange; domain logic stays in cents.
func (a Amount) Float64() float64 { return float64(a) / 100 }

// String renders the amount with two fraction digits, e.g. "123.45".
func (a Amount) String() string {
	c := int64(a)
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// MarshalJSON encodes the amount as a two-fraction-digit decimal string so
// the wire form is unambiguous across languages.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
