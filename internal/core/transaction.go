package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// TxType is the kind of ledger transaction.
type TxType string

const (
	Income   TxType = "income"
	Expense  TxType = "expense"
	Transfer TxType = "transfer"
)

// TransferCategory is the category every transfer carries.
const TransferCategory = "transfer"

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	}
	return false
}

// Transaction is a committed ledger entry. Account and ToAccount hold the
// names the balance effects were applied to, after transfer normalization.
type Transaction struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TxType          `json:"type"`
	Date      Date            `json:"date"`
	Category  string          `json:"category"`
	Account   string          `json:"account"`
	ToAccount string          `json:"toAccount,omitempty"`
	Note      string          `json:"note,omitempty"`
}

// Effect is a signed balance change on one account.
type Effect struct {
	Account string
	Delta   decimal.Decimal
}

// Effects returns the balance changes the transaction applies.
func (tx Transaction) Effects() []Effect {
	switch tx.Type {
	case Income:
		return []Effect{{tx.Account, tx.Amount}}
	case Expense:
		return []Effect{{tx.Account, tx.Amount.Neg()}}
	case Transfer:
		return []Effect{{tx.Account, tx.Amount.Neg()}, {tx.ToAccount, tx.Amount}}
	}
	return nil
}

// TransactionInput is what a caller submits to add or update a transaction.
type TransactionInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Type      TxType          `json:"type"`
	Date      Date            `json:"date"`
	Category  string          `json:"category"`
	Account   string          `json:"account"`
	ToAccount string          `json:"toAccount,omitempty"`
	Note      string          `json:"note,omitempty"`
}

// Normalize trims free text fields and lowercases the type.
func (in TransactionInput) Normalize() TransactionInput {
	in.Type = TxType(strings.ToLower(strings.TrimSpace(string(in.Type))))
	in.Category = strings.TrimSpace(in.Category)
	in.Account = strings.TrimSpace(in.Account)
	in.ToAccount = strings.TrimSpace(in.ToAccount)
	in.Note = strings.TrimSpace(in.Note)
	return in
}

// validate checks the shape of the input. Amount and account checks belong
// to the ledger chain and run there, in order.
func (in TransactionInput) validate() error {
	if !in.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q: %w", in.Type, ErrInvalid)
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if in.Account == "" {
		return fmt.Errorf("account is required: %w", ErrInvalid)
	}
	if in.Type != Transfer && in.Category == "" {
		return fmt.Errorf("category is required for %s: %w", in.Type, ErrInvalid)
	}
	if in.Type == Transfer && in.ToAccount == "" {
		return fmt.Errorf("destination account is required for transfer: %w", ErrInvalid)
	}
	return nil
}

// Filter selects transactions. Zero fields match everything.
type Filter struct {
	Type     TxType
	Category string
	Date     Date
	Account  string
	From     Date
	To       Date
}

// Match reports whether tx satisfies every set predicate.
func (f Filter) Match(tx Transaction) bool {
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	if f.Date != "" && tx.Date != f.Date {
		return false
	}
	if f.Account != "" && tx.Account != f.Account && tx.ToAccount != f.Account {
		return false
	}
	return tx.Date.Within(f.From, f.To)
}

// SortTransactions orders newest first: date descending, then id descending.
// Ids are time ordered so the tie break keeps insertion order reversed.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Date != txs[j].Date {
			return txs[i].Date > txs[j].Date
		}
		return txs[i].ID > txs[j].ID
	})
}
