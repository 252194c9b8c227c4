// Package storage is the SQLite backed finance store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	applog "fintrack/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores accounts, transactions and budgets in SQLite.
// Money is kept as decimal text so no precision is lost.
type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes anyway and this avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	logger = logger.WithComponent(applog.ComponentStorage)
	if _, err := RunMigrations(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadAccounts returns accounts in insertion order.
func (r *SQLiteRepository) LoadAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, type, balance, opening_balance, COALESCE(parent_account, '') FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var (
			a                core.Account
			accType          string
			balance, opening string
		)
		if err := rows.Scan(&a.Name, &accType, &balance, &opening, &a.ParentAccount); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = core.AccountType(accType)
		if a.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("parse balance of %q: %w", a.Name, err)
		}
		if a.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
			return nil, fmt.Errorf("parse opening balance of %q: %w", a.Name, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LoadTransactions returns every transaction, newest first.
func (r *SQLiteRepository) LoadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount, type, date, category, account, COALESCE(to_account, ''), COALESCE(note, '')
		FROM transactions
		ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx             core.Transaction
			amount, txType string
			date           string
		)
		if err := rows.Scan(&tx.ID, &amount, &txType, &date, &tx.Category, &tx.Account, &tx.ToAccount, &tx.Note); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of %s: %w", tx.ID, err)
		}
		tx.Type, tx.Date = core.TxType(txType), core.Date(date)
		out = append(out, tx)
	}
	return out, rows.Err()
}

// LoadBudgets returns budgets, newest start first.
func (r *SQLiteRepository) LoadBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, amount, period, start_date, end_date FROM budgets ORDER BY start_date DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var (
			b                  core.Budget
			amount, period     string
			startDate, endDate string
		)
		if err := rows.Scan(&b.ID, &b.Category, &amount, &period, &startDate, &endDate); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if b.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of budget %s: %w", b.ID, err)
		}
		b.Period, b.StartDate, b.EndDate = core.Period(period), core.Date(startDate), core.Date(endDate)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Apply writes every change inside one SQL transaction.
func (r *SQLiteRepository) Apply(ctx context.Context, c core.Changes) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.ErrorContext(ctx, "Rollback failed", applog.FieldError, rbErr)
			}
		}
	}()

	if c.ClearTransactions {
		if _, err = tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
			return fmt.Errorf("clear transactions: %w", err)
		}
	}
	for _, id := range c.DeletedTransactions {
		if _, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete transaction %s: %w", id, err)
		}
	}
	for _, t := range c.Transactions {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO transactions (id, amount, type, date, category, account, to_account, note)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				amount = excluded.amount,
				type = excluded.type,
				date = excluded.date,
				category = excluded.category,
				account = excluded.account,
				to_account = excluded.to_account,
				note = excluded.note`,
			t.ID, t.Amount.String(), string(t.Type), string(t.Date), t.Category, t.Account,
			nullable(t.ToAccount), nullable(t.Note))
		if err != nil {
			return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
		}
	}
	for _, name := range c.DeletedAccounts {
		if _, err = tx.ExecContext(ctx, `DELETE FROM accounts WHERE name = ?`, name); err != nil {
			return fmt.Errorf("delete account %q: %w", name, err)
		}
	}
	for _, a := range c.Accounts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO accounts (name, type, balance, opening_balance, parent_account)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				type = excluded.type,
				balance = excluded.balance,
				opening_balance = excluded.opening_balance,
				parent_account = excluded.parent_account`,
			a.Name, string(a.Type), a.Balance.String(), a.OpeningBalance.String(), nullable(a.ParentAccount))
		if err != nil {
			return fmt.Errorf("upsert account %q: %w", a.Name, err)
		}
	}
	for _, id := range c.DeletedBudgets {
		if _, err = tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete budget %s: %w", id, err)
		}
	}
	for _, b := range c.Budgets {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO budgets (id, category, amount, period, start_date, end_date)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				category = excluded.category,
				amount = excluded.amount,
				period = excluded.period,
				start_date = excluded.start_date,
				end_date = excluded.end_date`,
			b.ID, b.Category, b.Amount.String(), string(b.Period), string(b.StartDate), string(b.EndDate))
		if err != nil {
			return fmt.Errorf("upsert budget %s: %w", b.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.DebugContext(ctx, "Changes committed",
		"accounts", len(c.Accounts),
		"transactions", len(c.Transactions),
		"deleted_transactions", len(c.DeletedTransactions),
		"budgets", len(c.Budgets),
		"cleared", c.ClearTransactions)
	return nil
}

// GetTransaction reads a single transaction. The export worker uses it to
// fetch the row an event refers to.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var (
		tx             core.Transaction
		amount, txType string
		date           string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, amount, type, date, category, account, COALESCE(to_account, ''), COALESCE(note, '')
		FROM transactions WHERE id = ?`, id).
		Scan(&tx.ID, &amount, &txType, &date, &tx.Category, &tx.Account, &tx.ToAccount, &tx.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount of %s: %w", id, err)
	}
	tx.Type, tx.Date = core.TxType(txType), core.Date(date)
	return tx, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
