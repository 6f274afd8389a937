package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultUSDFactor is the fixed multiplier applied to USD costs. It is a
// bookkeeping constant agreed with the studio, not an exchange rate.
var DefaultUSDFactor = decimal.NewFromInt(1000)

// Converter normalizes amounts to the primary currency using fixed factors.
type Converter struct {
	factors map[Currency]decimal.Decimal
}

// NewConverter builds a converter where one USD counts as usdFactor ARS.
// A non-positive factor falls back to DefaultUSDFactor.
func NewConverter(usdFactor decimal.Decimal) *Converter {
	if !usdFactor.IsPositive() {
		usdFactor = DefaultUSDFactor
	}
	return &Converter{
		factors: map[Currency]decimal.Decimal{
			ARS: decimal.NewFromInt(1),
			USD: usdFactor,
		},
	}
}

func (c *Converter) Factor(cur Currency) (decimal.Decimal, bool) {
	f, ok := c.factors[cur]
	return f, ok
}

// ToPrimary converts amount expressed in cur to ARS.
func (c *Converter) ToPrimary(amount decimal.Decimal, cur Currency) (decimal.Decimal, error) {
	f, ok := c.factors[cur]
	if !ok {
		return decimal.Zero, fmt.Errorf("no conversion factor for currency %q", cur)
	}
	return amount.Mul(f), nil
}
