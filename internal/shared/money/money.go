// Package money holds the fixed-point currency amount used for prices,
// order totals and payment amounts. Values are kept at two decimal
// places; floats never touch money.
package money

import (
	"bytes"
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

const Places = 2

type Amount struct {
	d decimal.Decimal
}

var Zero = Amount{}

func New(d decimal.Decimal) Amount { return Amount{d: d.Round(Places)} }

// Cents builds an amount from an integer number of cents.
func Cents(c int64) Amount { return Amount{d: decimal.New(c, -Places)} }

func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return New(d), nil
}

// MustParse is for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) Decimal() decimal.Decimal { return a.d }

func (a Amount) Add(b Amount) Amount { return New(a.d.Add(b.d)) }

// Times multiplies a unit price by a quantity.
func (a Amount) Times(qty int) Amount { return New(a.d.Mul(decimal.NewFromInt(int64(qty)))) }

func (a Amount) Equal(b Amount) bool { return a.d.Equal(b.d) }

func (a Amount) IsNegative() bool { return a.d.IsNegative() }

func (a Amount) String() string { return a.d.StringFixed(Places) }

// Format renders the amount for humans, e.g. "$30.00".
func (a Amount) Format(currency string) string {
	switch currency {
	case "EUR":
		return "€" + a.String()
	case "GBP":
		return "£" + a.String()
	case "USD", "":
		return "$" + a.String()
	default:
		return a.String() + " " + currency
	}
}

// MarshalJSON writes a bare number with two decimals: 30.00
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts numbers and quoted strings.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("money: null amount")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("money: %w", err)
	}
	*a = New(d)
	return nil
}

func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("money: scan: %w", err)
	}
	*a = New(d)
	return nil
}

// GormDataType keeps the column type the same across drivers.
func (Amount) GormDataType() string { return "decimal(10,2)" }
