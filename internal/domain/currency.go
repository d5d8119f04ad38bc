package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyVES Currency = "VES"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// BaseCurrency is the currency budgets and running totals are stored in.
const BaseCurrency = CurrencyVES

var SupportedCurrencies = []Currency{CurrencyVES, CurrencyUSD, CurrencyEUR}

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyVES, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

func (c Currency) IsBase() bool {
	return c == BaseCurrency
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("ParseCurrency: %q: %w", s, ErrInvalidCurrency)
	}
	return c, nil
}

// Rates maps a currency to the multiplier that converts one unit of it into
// the base currency.
type Rates map[Currency]decimal.Decimal

func DefaultRates() Rates {
	return Rates{
		CurrencyVES: decimal.NewFromInt(1),
		CurrencyUSD: decimal.RequireFromString("36.30"),
		CurrencyEUR: decimal.RequireFromString("39.50"),
	}
}

// Clone returns a copy with the base identity entry guaranteed.
func (r Rates) Clone() Rates {
	out := make(Rates, len(r)+1)
	for c, v := range r {
		out[c] = v
	}
	out[BaseCurrency] = decimal.NewFromInt(1)
	return out
}

func (r Rates) Validate() error {
	for c, v := range r {
		if !c.IsValid() {
			return fmt.Errorf("Validate: %s: %w", c, ErrInvalidCurrency)
		}
		if !v.IsPositive() {
			return fmt.Errorf("Validate: %s=%s: %w", c, v, ErrInvalidRate)
		}
	}
	return nil
}
