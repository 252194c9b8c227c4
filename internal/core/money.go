// Package core holds the finance domain: accounts, the transaction ledger,
// the sub-account cap rule and budgets.
//
// Everything in this package is pure. Operations run against an explicit
// Book value and record the rows they touched so a store can persist them
// in a single commit.
package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

func init() {
	// Money travels as JSON numbers, never as quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	capRatio = decimal.RequireFromString("0.9")
	zero     = decimal.Zero
)

// ParseAmount converts a user-entered decimal string to a positive amount
// rounded half-up to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs,
// exponents, grouping and zero amounts are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("0.004")  -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return zero, fmt.Errorf("empty amount: %w", ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return zero, fmt.Errorf("amount %q: %w", s, ErrInvalidAmount)
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return zero, fmt.Errorf("amount %q: %w", s, ErrInvalidAmount)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return zero, fmt.Errorf("amount %q: %w", s, ErrInvalidAmount)
	}
	d = RoundCents(d)
	if !d.IsPositive() {
		return zero, fmt.Errorf("amount %q: %w", s, ErrInvalidAmount)
	}
	return d, nil
}

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
