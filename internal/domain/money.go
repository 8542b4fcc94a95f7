package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents). On the wire it is a decimal
// string with two fraction digits, e.g. "19.00".
type Money int64

const minorUnitExp = -2

// ErrMoneyOverflow reports an amount or product outside the int64 cent range.
var ErrMoneyOverflow = errors.New("amount out of range")

var (
	minMinor = decimal.NewFromInt(math.MinInt64)
	maxMinor = decimal.NewFromInt(math.MaxInt64)
)

// ParseMoney parses a decimal amount such as "9.5" or "9.50". Amounts with more
// precision than one cent are rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, err)
	}
	return MoneyFromDecimal(d)
}

func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	minor := d.Shift(-minorUnitExp)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("amount %s has sub-cent precision", d.String())
	}
	if minor.LessThan(minMinor) || minor.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("amount %s: %w", d.String(), ErrMoneyOverflow)
	}
	return Money(minor.IntPart()), nil
}

func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), minorUnitExp)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(-minorUnitExp)
}

// Times multiplies a unit amount by a quantity.
func (m Money) Times(qty int) (Money, error) {
	q := Money(qty)
	if m == 0 || q == 0 {
		return 0, nil
	}
	p := m * q
	if p/q != m || (m == -1 && q == math.MinInt64) || (q == -1 && m == math.MinInt64) {
		return 0, fmt.Errorf("%s x %d: %w", m, qty, ErrMoneyOverflow)
	}
	return p, nil
}

// Add returns m + o.
func (m Money) Add(o Money) (Money, error) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, fmt.Errorf("%s + %s: %w", m, o, ErrMoneyOverflow)
	}
	return sum, nil
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both quoted decimal strings and bare JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
