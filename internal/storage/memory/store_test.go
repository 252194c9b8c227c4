package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestStateApplyKeepsPositions(t *testing.T) {
	s := State{
		Accounts: []core.Account{
			{Name: "Card", Type: core.Card, Balance: decimal.NewFromInt(10)},
			{Name: "Cash", Type: core.Cash, Balance: decimal.NewFromInt(20)},
		},
		Transactions: []core.Transaction{{ID: "a"}, {ID: "b"}},
	}

	next := s.Apply(core.Changes{
		Accounts: []core.Account{
			{Name: "Card", Type: core.Card, Balance: decimal.NewFromInt(99)},
			{Name: "New", Type: core.Savings},
		},
		Transactions:        []core.Transaction{{ID: "c"}},
		DeletedTransactions: []string{"a"},
	})

	if got := next.Accounts[0]; got.Name != "Card" || !got.Balance.Equal(decimal.NewFromInt(99)) {
		t.Errorf("Card = %+v", got)
	}
	if len(next.Accounts) != 3 || next.Accounts[2].Name != "New" {
		t.Errorf("accounts = %+v", next.Accounts)
	}
	if len(next.Transactions) != 2 || next.Transactions[0].ID != "b" || next.Transactions[1].ID != "c" {
		t.Errorf("transactions = %+v", next.Transactions)
	}
	if !s.Accounts[0].Balance.Equal(decimal.NewFromInt(10)) || len(s.Transactions) != 2 {
		t.Error("Apply modified the receiver")
	}
}

func TestStateApplyClear(t *testing.T) {
	s := State{Transactions: []core.Transaction{{ID: "a"}}}
	next := s.Apply(core.Changes{ClearTransactions: true, Transactions: []core.Transaction{{ID: "z"}}})
	if len(next.Transactions) != 1 || next.Transactions[0].ID != "z" {
		t.Fatalf("transactions = %+v", next.Transactions)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New(State{})

	book := core.NewBook(nil, nil, nil)
	book.EnsureDefaultAccounts()
	tx, err := book.AddTransaction(core.TransactionInput{
		Amount: decimal.NewFromInt(5), Type: core.Expense, Date: "2024-05-01", Category: "food", Account: "Cash",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Apply(ctx, book.Changes()); err != nil {
		t.Fatal(err)
	}

	accounts, _ := store.LoadAccounts(ctx)
	txs, _ := store.LoadTransactions(ctx)
	reloaded := core.NewBook(accounts, txs, nil)
	if cash, _ := reloaded.Balance("Cash"); !cash.Equal(decimal.NewFromInt(995)) {
		t.Errorf("Cash = %s", cash)
	}

	got, err := store.GetTransaction(ctx, tx.ID)
	if err != nil || got.Category != "food" {
		t.Fatalf("GetTransaction = %+v, %v", got, err)
	}
	if _, err := store.GetTransaction(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreApplyHonoursCancelledContext(t *testing.T) {
	store := New(State{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := store.Apply(ctx, core.Changes{Accounts: []core.Account{{Name: "X"}}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(store.Snapshot().Accounts) != 0 {
		t.Fatal("cancelled apply wrote rows")
	}
}
