package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AccountType is the kind of account.
type AccountType string

const (
	Card    AccountType = "card"
	Cash    AccountType = "cash"
	Savings AccountType = "savings"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case Card, Cash, Savings:
		return true
	}
	return false
}

// SeedBalance is the balance a top-level account of type t starts with,
// and returns to when the ledger is cleared.
func SeedBalance(t AccountType) decimal.Decimal {
	switch t {
	case Card:
		return decimal.NewFromInt(5000)
	case Cash:
		return decimal.NewFromInt(1000)
	case Savings:
		return decimal.NewFromInt(10000)
	}
	return zero
}

// DefaultAccounts are created by EnsureDefaultAccounts.
var DefaultAccounts = []struct {
	Name string
	Type AccountType
}{
	{"Card", Card},
	{"Cash", Cash},
	{"Savings", Savings},
}

// Account is a named balance. Name is the identifier.
//
// OpeningBalance is the part of Balance that no transaction explains: the
// seed, direct balance edits, resets. Balance always equals OpeningBalance
// plus the effects of the surviving transactions.
type Account struct {
	Name           string          `json:"name"`
	Type           AccountType     `json:"type"`
	Balance        decimal.Decimal `json:"balance"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	ParentAccount  string          `json:"parentAccount,omitempty"`
}

// IsSubaccount reports whether the account has a parent.
func (a Account) IsSubaccount() bool { return a.ParentAccount != "" }

// IsTopLevelSavings reports whether a may act as a parent.
func (a Account) IsTopLevelSavings() bool {
	return a.Type == Savings && a.ParentAccount == ""
}

// AccountInput describes an account to create.
type AccountInput struct {
	Name           string           `json:"name"`
	Type           AccountType      `json:"type"`
	ParentAccount  string           `json:"parentAccount,omitempty"`
	InitialBalance *decimal.Decimal `json:"initialBalance,omitempty"`
}

// Normalize trims names and lowercases the type.
func (in AccountInput) Normalize() AccountInput {
	in.Name = strings.TrimSpace(in.Name)
	in.ParentAccount = strings.TrimSpace(in.ParentAccount)
	in.Type = AccountType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	return in
}

func (in AccountInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("account name is required: %w", ErrInvalidOperation)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("unknown account type %q: %w", in.Type, ErrInvalidOperation)
	}
	if in.InitialBalance != nil && in.InitialBalance.IsNegative() {
		return fmt.Errorf("initial balance %s is negative: %w", in.InitialBalance, ErrInvalidAmount)
	}
	return nil
}
