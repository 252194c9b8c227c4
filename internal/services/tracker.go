package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Tracker runs finance operations against a Store.
//
// Every write runs on a clone of the last committed Book; the recorded
// changes are applied to the store in one unit and the clone replaces the
// cached state only when that commit succeeds. Writers are serialized with a
// mutex, which assumes a single process owns the store.
type Tracker struct {
	mu        sync.RWMutex
	store     Store
	publisher Publisher
	logger    *applog.Logger
	book      *core.Book
	idFunc    core.IDFunc
	now       func() time.Time
	onCommit  []func()
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPublisher sets the ledger event publisher.
func WithPublisher(p Publisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *applog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithIDFunc overrides transaction and budget id generation.
func WithIDFunc(fn core.IDFunc) Option {
	return func(t *Tracker) { t.idFunc = fn }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// OnCommit registers a hook run after every committed write and reload.
func OnCommit(fn func()) Option {
	return func(t *Tracker) { t.onCommit = append(t.onCommit, fn) }
}

// NewTracker loads the current state from store.
func NewTracker(ctx context.Context, store Store, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		store:  store,
		logger: applog.Discard(),
		idFunc: core.NewID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithComponent(applog.ComponentLedger)

	if err := t.Reload(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload replaces the cached state with what the store holds.
func (t *Tracker) Reload(ctx context.Context) error {
	book, err := t.load(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.book = book
	t.committed()
	t.mu.Unlock()
	return nil
}

func (t *Tracker) load(ctx context.Context) (*core.Book, error) {
	accounts, err := t.store.LoadAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w: %w", core.ErrPersistenceFailure, err)
	}
	txs, err := t.store.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w: %w", core.ErrPersistenceFailure, err)
	}
	budgets, err := t.store.LoadBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w: %w", core.ErrPersistenceFailure, err)
	}
	return core.NewBook(accounts, txs, budgets, core.WithIDFunc(t.idFunc)), nil
}

// mutate runs fn on a working copy and commits its changes.
func (t *Tracker) mutate(ctx context.Context, op string, fn func(b *core.Book) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	work := t.book.Clone()
	if err := fn(work); err != nil {
		return err
	}
	changes := work.Changes()
	if !changes.Empty() {
		if err := t.store.Apply(ctx, changes); err != nil {
			t.logger.ErrorContext(ctx, "Commit failed",
				applog.FieldOperation, op,
				applog.FieldErrorKind, string(core.KindPersistenceFailure),
				applog.FieldError, err)
			return fmt.Errorf("%s: %w: %w", op, core.ErrPersistenceFailure, err)
		}
	}
	t.book = work
	t.committed()
	return nil
}

func (t *Tracker) addCommitHook(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCommit = append(t.onCommit, fn)
}

func (t *Tracker) committed() {
	for _, fn := range t.onCommit {
		fn()
	}
}

func (t *Tracker) read() *core.Book {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.book
}

// view runs fn against the committed state under the read lock.
func (t *Tracker) view(fn func(b *core.Book)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn(t.book)
}

func (t *Tracker) publish(ctx context.Context, typ EventType, txID string) {
	if t.publisher == nil {
		return
	}
	ev := Event{Type: typ, TransactionID: txID, Timestamp: t.now().UTC()}
	if err := t.publisher.Publish(ctx, ev); err != nil {
		// The write is committed; consumers catch up from the store.
		t.logger.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEvent, string(typ),
			applog.FieldTransactionID, txID,
			applog.FieldError, err)
	}
}

func (t *Tracker) logRejected(ctx context.Context, op string, err error) {
	t.logger.WarnContext(ctx, "Operation rejected",
		applog.FieldOperation, op,
		applog.FieldErrorKind, string(core.KindOf(err)),
		applog.FieldError, err)
}

// EnsureDefaultAccounts creates the Card, Cash and Savings accounts when
// missing. Applications call it once at startup.
func (t *Tracker) EnsureDefaultAccounts(ctx context.Context) ([]core.Account, error) {
	var created []core.Account
	err := t.mutate(ctx, "ensure default accounts", func(b *core.Book) error {
		created = b.EnsureDefaultAccounts()
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, a := range created {
		t.logger.InfoContext(ctx, "Default account created", applog.FieldAccount, a.Name, applog.FieldAmount, a.Balance.String())
	}
	return created, nil
}

// Accounts lists every account in insertion order.
func (t *Tracker) Accounts(ctx context.Context) []core.Account {
	return t.read().Accounts()
}

// AccountBalance pairs an account with the balance replayed from its
// transactions. The two must agree.
type AccountBalance struct {
	core.Account
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

// AccountBalances lists accounts with their replayed balance.
func (t *Tracker) AccountBalances(ctx context.Context) []AccountBalance {
	var out []AccountBalance
	t.view(func(b *core.Book) {
		replayed := b.Replay()
		for _, a := range b.Accounts() {
			ab := AccountBalance{Account: a, CurrentBalance: replayed[a.Name]}
			if !ab.CurrentBalance.Equal(a.Balance) {
				t.logger.WarnContext(ctx, "Replayed balance differs from stored balance",
					applog.FieldAccount, a.Name,
					"stored", a.Balance.String(),
					"replayed", ab.CurrentBalance.String())
			}
			out = append(out, ab)
		}
	})
	return out
}

// Account returns one account.
func (t *Tracker) Account(ctx context.Context, name string) (core.Account, error) {
	return t.read().Account(name)
}

// Subaccounts lists the children of parent in insertion order.
func (t *Tracker) Subaccounts(ctx context.Context, parent string) []core.Account {
	return t.read().Subaccounts(parent)
}

// CreateAccount adds an account or sub-account.
func (t *Tracker) CreateAccount(ctx context.Context, in core.AccountInput) (core.Account, error) {
	var created core.Account
	err := t.mutate(ctx, "create account", func(b *core.Book) error {
		var err error
		created, err = b.CreateAccount(in)
		return err
	})
	if err != nil {
		t.logRejected(ctx, "create account", err)
		return core.Account{}, err
	}
	t.logger.InfoContext(ctx, "Account created",
		applog.FieldAccount, created.Name,
		"type", string(created.Type),
		"parent", created.ParentAccount)
	return created, nil
}

// SetBalance edits a balance directly.
func (t *Tracker) SetBalance(ctx context.Context, name string, balance decimal.Decimal) (core.Account, error) {
	var updated core.Account
	err := t.mutate(ctx, "set balance", func(b *core.Book) error {
		var err error
		updated, err = b.SetBalance(name, balance)
		return err
	})
	if err != nil {
		t.logRejected(ctx, "set balance", err)
		return core.Account{}, err
	}
	t.logger.InfoContext(ctx, "Balance updated", applog.NewFields().WithAccount(name, &updated.Balance).ToSlice()...)
	return updated, nil
}

// DeleteAccount removes a sub-account.
func (t *Tracker) DeleteAccount(ctx context.Context, name string) error {
	err := t.mutate(ctx, "delete account", func(b *core.Book) error {
		return b.DeleteAccount(name)
	})
	if err != nil {
		t.logRejected(ctx, "delete account", err)
		return err
	}
	t.logger.InfoContext(ctx, "Sub-account deleted", applog.FieldAccount, name)
	return nil
}

// ZeroBalances sets every account balance to zero.
func (t *Tracker) ZeroBalances(ctx context.Context) error {
	err := t.mutate(ctx, "zero balances", func(b *core.Book) error {
		b.ZeroBalances()
		return nil
	})
	if err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "All account balances zeroed", applog.FieldOperation, applog.OpReset)
	return nil
}

// AddTransaction records a transaction and its balance effects.
func (t *Tracker) AddTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	err := t.mutate(ctx, "add transaction", func(b *core.Book) error {
		var err error
		tx, err = b.AddTransaction(in)
		return err
	})
	if err != nil {
		t.logRejected(ctx, applog.OpCreate, err)
		return core.Transaction{}, err
	}
	t.logger.InfoContext(ctx, "Transaction added",
		applog.NewFields().
			WithTransaction(tx.ID, string(tx.Type), tx.Amount, tx.Account, tx.ToAccount, tx.Category).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	t.publish(ctx, EventTransactionCreated, tx.ID)
	return tx, nil
}

// UpdateTransaction replaces a transaction atomically, keeping its id.
func (t *Tracker) UpdateTransaction(ctx context.Context, id string, in core.TransactionInput) (core.Transaction, error) {
	var (
		tx      core.Transaction
		skipped []string
	)
	err := t.mutate(ctx, "update transaction", func(b *core.Book) error {
		var err error
		tx, skipped, err = b.UpdateTransaction(id, in)
		return err
	})
	if err != nil {
		t.logRejected(ctx, applog.OpUpdate, err)
		return core.Transaction{}, err
	}
	t.logSkipped(ctx, id, skipped)
	t.logger.InfoContext(ctx, "Transaction updated",
		applog.NewFields().
			WithTransaction(tx.ID, string(tx.Type), tx.Amount, tx.Account, tx.ToAccount, tx.Category).
			WithOperation(applog.OpUpdate).
			ToSlice()...)
	t.publish(ctx, EventTransactionUpdated, tx.ID)
	return tx, nil
}

// DeleteTransaction removes a transaction and reverses its effects.
func (t *Tracker) DeleteTransaction(ctx context.Context, id string) error {
	var skipped []string
	err := t.mutate(ctx, "delete transaction", func(b *core.Book) error {
		var err error
		_, skipped, err = b.DeleteTransaction(id)
		return err
	})
	if err != nil {
		t.logRejected(ctx, applog.OpDelete, err)
		return err
	}
	t.logSkipped(ctx, id, skipped)
	t.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id)
	t.publish(ctx, EventTransactionDeleted, id)
	return nil
}

func (t *Tracker) logSkipped(ctx context.Context, id string, skipped []string) {
	if len(skipped) == 0 {
		return
	}
	t.logger.WarnContext(ctx, "Reversal skipped for missing accounts",
		applog.FieldTransactionID, id,
		applog.FieldSkipped, skipped)
}

// Transaction returns one transaction.
func (t *Tracker) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	return t.read().Transaction(id)
}

// ListTransactions returns matching transactions, newest first.
func (t *Tracker) ListTransactions(ctx context.Context, f core.Filter) []core.Transaction {
	return t.read().ListTransactions(f)
}

// ClearAll deletes every transaction and resets balances.
func (t *Tracker) ClearAll(ctx context.Context) error {
	err := t.mutate(ctx, "clear transactions", func(b *core.Book) error {
		b.ClearAll()
		return nil
	})
	if err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "All transactions cleared", applog.FieldOperation, applog.OpClear)
	t.publish(ctx, EventLedgerCleared, "")
	return nil
}

// CreateBudget stores a budget.
func (t *Tracker) CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	var bg core.Budget
	err := t.mutate(ctx, "create budget", func(b *core.Book) error {
		var err error
		bg, err = b.CreateBudget(in)
		return err
	})
	if err != nil {
		t.logRejected(ctx, "create budget", err)
		return core.Budget{}, err
	}
	t.logger.InfoContext(ctx, "Budget created",
		applog.FieldBudgetID, bg.ID,
		applog.FieldCategory, bg.Category,
		applog.FieldAmount, bg.Amount.String())
	return bg, nil
}

// DeleteBudget removes a budget.
func (t *Tracker) DeleteBudget(ctx context.Context, id string) error {
	err := t.mutate(ctx, "delete budget", func(b *core.Book) error {
		return b.DeleteBudget(id)
	})
	if err != nil {
		return err
	}
	t.logger.InfoContext(ctx, "Budget deleted", applog.FieldBudgetID, id)
	return nil
}

// ListBudgets returns budgets newest first.
func (t *Tracker) ListBudgets(ctx context.Context) []core.Budget {
	return t.read().ListBudgets()
}

// BudgetProgress reports spent versus budget for budgets overlapping [from, to].
func (t *Tracker) BudgetProgress(ctx context.Context, from, to core.Date) ([]core.BudgetProgress, error) {
	return t.read().BudgetProgress(from, to)
}

// Snapshot is a read-only copy of the committed state.
type Snapshot struct {
	Accounts     []core.Account
	Transactions []core.Transaction
	Budgets      []core.Budget
}

// Snapshot copies the committed state for reporting.
func (t *Tracker) Snapshot(ctx context.Context) Snapshot {
	b := t.read()
	return Snapshot{Accounts: b.Accounts(), Transactions: b.Transactions(), Budgets: b.Budgets()}
}

// Ping checks the store by reloading nothing but accounts.
func (t *Tracker) Ping(ctx context.Context) error {
	if _, err := t.store.LoadAccounts(ctx); err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistenceFailure, err)
	}
	return nil
}

// Close releases the publisher and the store.
func (t *Tracker) Close() error {
	var errs []error
	if t.publisher != nil {
		if err := t.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if t.store != nil {
		if err := t.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close tracker: %w", errors.Join(errs...))
	}
	return nil
}
