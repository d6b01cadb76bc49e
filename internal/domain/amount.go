package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount is 2^128-1, the largest value a ledger counter can hold.
var maxAmount = decimal.RequireFromString("340282366920938463463374607431768211455")

// maxAmountDigits is the number of decimal digits in maxAmount.
const maxAmountDigits = 39

// unitsPattern admits plain decimal notation only. Exponents are refused
// before decimal ever sees them because "1e2000000000" expands to a huge
// big.Int on comparison.
var unitsPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// Amount is an unsigned 128-bit quantity of base units (for example wei).
// The zero value is a valid zero amount.
type Amount struct {
	d decimal.Decimal
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{}

// NewAmount returns an amount of n base units.
func NewAmount(n uint64) Amount {
	return Amount{d: decimal.NewFromUint64(n)}
}

// ParseAmount parses an integer count of base units.
func ParseAmount(s string) (Amount, error) {
	return ParseUnits(s, 0)
}

// ParseUnits parses a decimal string expressed in whole units and scales it
// by 10^decimals, so ParseUnits("0.0289", 18) is 28900000000000000 wei.
func ParseUnits(s string, decimals int) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if decimals < 0 || decimals > maxAmountDigits {
		return Amount{}, fmt.Errorf("%w: decimals %d out of range", ErrInvalidAmount, decimals)
	}
	if strings.HasPrefix(s, "-") {
		return Amount{}, fmt.Errorf("%w: negative", ErrInvalidAmount)
	}
	if !unitsPattern.MatchString(s) {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, truncate(s, 32))
	}
	whole, frac, _ := strings.Cut(s, ".")
	whole = strings.TrimLeft(whole, "0")
	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return Amount{}, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidAmount, decimals)
	}
	if whole != "" && len(whole)+decimals > maxAmountDigits {
		return Amount{}, ErrAmountOverflow
	}
	if whole == "" {
		whole = "0"
	}
	if frac != "" {
		whole += "." + frac
	}
	d, err := decimal.NewFromString(whole)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, truncate(s, 32))
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return Amount{}, fmt.Errorf("%w: more than %d fractional digits", ErrInvalidAmount, decimals)
	}
	if scaled.Cmp(maxAmount) > 0 {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{d: scaled.Round(0)}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Add returns a+b or ErrAmountOverflow when the sum exceeds 2^128-1.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a.d.Add(b.d)
	if sum.Cmp(maxAmount) > 0 {
		return Amount{}, ErrAmountOverflow
	}
	return Amount{d: sum}, nil
}

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool { return a.d.IsZero() }

// Cmp compares a and b, returning -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// Equal reports whether a and b are the same quantity.
func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

// String renders the amount in base units.
func (a Amount) String() string { return a.d.String() }

// FormatUnits renders the amount in whole units with the given decimals.
func (a Amount) FormatUnits(decimals int) string {
	return a.d.Shift(-int32(decimals)).String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = Amount{}
		return nil
	}
	var s string
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = raw
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
