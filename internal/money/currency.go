// Package money holds the currency vocabulary of the studio and the es-AR
// display and parsing rules for amounts and dates.
package money

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
)

// Currency is the ISO code stored in the moneda column of cost items.
type Currency string

const (
	ARS Currency = "ARS"
	USD Currency = "USD"
)

// Primary is the currency every total is normalized to.
const Primary = ARS

var supported = map[Currency]string{
	ARS: "$",
	USD: "US$",
}

// ParseCurrency validates an ISO 4217 code and checks that the studio works
// with it. Matching is case-insensitive.
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("invalid currency %q: %w", code, err)
	}
	c := Currency(unit.String())
	if _, ok := supported[c]; !ok {
		return "", fmt.Errorf("unsupported currency %q", c)
	}
	return c, nil
}

func (c Currency) Valid() bool {
	_, ok := supported[c]
	return ok
}

// Symbol is the prefix used when printing amounts.
func (c Currency) Symbol() string {
	if s, ok := supported[c]; ok {
		return s
	}
	return string(c)
}

func (c Currency) String() string { return string(c) }
