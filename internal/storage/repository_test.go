package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "fintrack.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	book := core.NewBook(nil, nil, nil)
	book.EnsureDefaultAccounts()
	if _, err := book.CreateAccount(core.AccountInput{Name: "Vacation", Type: core.Savings, ParentAccount: "Savings"}); err != nil {
		t.Fatal(err)
	}
	tx, err := book.AddTransaction(core.TransactionInput{
		Amount: d("12.34"), Type: core.Transfer, Date: "2024-03-10", Account: "Card", ToAccount: "Vacation", Note: "trip",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := book.CreateBudget(core.BudgetInput{Category: "food", Amount: d("300"), Period: core.Monthly, StartDate: "2024-03-01"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Apply(ctx, book.Changes()); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	accounts, err := repo.LoadAccounts(ctx)
	if err != nil {
		t.Fatalf("LoadAccounts: %v", err)
	}
	names := []string{}
	for _, a := range accounts {
		names = append(names, a.Name)
	}
	if want := []string{"Card", "Cash", "Savings", "Vacation"}; len(names) != len(want) || names[3] != "Vacation" || names[0] != "Card" {
		t.Fatalf("accounts = %v, want %v", names, want)
	}
	if !accounts[0].Balance.Equal(d("4987.66")) {
		t.Errorf("Card balance = %s", accounts[0].Balance)
	}
	if accounts[3].ParentAccount != "Savings" {
		t.Errorf("Vacation parent = %q", accounts[3].ParentAccount)
	}

	txs, err := repo.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions: %v", err)
	}
	if len(txs) != 1 || txs[0].ToAccount != "Savings" || txs[0].Note != "trip" || !txs[0].Amount.Equal(d("12.34")) {
		t.Fatalf("transactions = %+v", txs)
	}

	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil || got.ID != tx.ID {
		t.Fatalf("GetTransaction = %+v, %v", got, err)
	}
	if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	budgets, err := repo.LoadBudgets(ctx)
	if err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	if len(budgets) != 1 || budgets[0].EndDate != "2024-03-31" {
		t.Fatalf("budgets = %+v", budgets)
	}
}

func TestSQLiteRepositoryApplyDeletesAndClears(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	book := core.NewBook(nil, nil, nil)
	book.EnsureDefaultAccounts()
	first, _ := book.AddTransaction(core.TransactionInput{Amount: d("1"), Type: core.Expense, Date: "2024-01-01", Category: "a", Account: "Card"})
	book.AddTransaction(core.TransactionInput{Amount: d("2"), Type: core.Expense, Date: "2024-01-02", Category: "b", Account: "Card"})
	if err := repo.Apply(ctx, book.Changes()); err != nil {
		t.Fatal(err)
	}

	work := book.Clone()
	if _, _, err := work.DeleteTransaction(first.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.Apply(ctx, work.Changes()); err != nil {
		t.Fatal(err)
	}
	txs, _ := repo.LoadTransactions(ctx)
	if len(txs) != 1 {
		t.Fatalf("after delete: %d transactions", len(txs))
	}

	work = work.Clone()
	work.ClearAll()
	if err := repo.Apply(ctx, work.Changes()); err != nil {
		t.Fatal(err)
	}
	txs, _ = repo.LoadTransactions(ctx)
	if len(txs) != 0 {
		t.Fatalf("after clear: %d transactions", len(txs))
	}
	accounts, _ := repo.LoadAccounts(ctx)
	if !accounts[0].Balance.Equal(d("5000")) {
		t.Fatalf("Card after clear = %s", accounts[0].Balance)
	}
}

func TestSQLiteRepositoryApplyIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	bad := core.Changes{
		Transactions: []core.Transaction{{ID: "ok", Amount: d("1"), Type: core.Income, Date: "2024-01-01", Category: "x", Account: "Card"}},
		// Violates the type CHECK constraint after the transaction row was written.
		Accounts: []core.Account{{Name: "Broken", Type: "crypto", Balance: d("1"), OpeningBalance: d("1")}},
	}
	if err := repo.Apply(ctx, bad); err == nil {
		t.Fatal("expected constraint violation")
	}
	txs, err := repo.LoadTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Fatalf("partial write survived rollback: %+v", txs)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	from, err := RunMigrations(path, nil)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if from != 0 {
		t.Errorf("new database reported version %d", from)
	}
	from, err = RunMigrations(path, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if from != SchemaVersion {
		t.Errorf("second run found version %d, want %d", from, SchemaVersion)
	}
}
