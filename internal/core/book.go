package core

import (
	"fmt"
	"slices"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IDFunc generates identifiers for new transactions and budgets.
type IDFunc func() (string, error)

// NewID returns a UUIDv7 string: time ordered and monotonic in-process.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

// Book is the full finance state: accounts in insertion order, transactions
// and budgets. Every mutating method is atomic: on error the Book is left
// exactly as it was. Successful mutations are recorded and can be drained
// with Changes.
//
// A Book is not safe for concurrent use.
type Book struct {
	accounts     []Account
	transactions []Transaction
	budgets      []Budget
	newID        IDFunc
	log          changeLog
}

type changeLog struct {
	accounts        map[string]struct{}
	deletedAccounts map[string]struct{}
	txs             map[string]struct{}
	deletedTxs      map[string]struct{}
	clearTxs        bool
	budgets         map[string]struct{}
	deletedBudgets  map[string]struct{}
}

func newChangeLog() changeLog {
	return changeLog{
		accounts:        map[string]struct{}{},
		deletedAccounts: map[string]struct{}{},
		txs:             map[string]struct{}{},
		deletedTxs:      map[string]struct{}{},
		budgets:         map[string]struct{}{},
		deletedBudgets:  map[string]struct{}{},
	}
}

func (c changeLog) clone() changeLog {
	return changeLog{
		accounts:        cloneSet(c.accounts),
		deletedAccounts: cloneSet(c.deletedAccounts),
		txs:             cloneSet(c.txs),
		deletedTxs:      cloneSet(c.deletedTxs),
		clearTxs:        c.clearTxs,
		budgets:         cloneSet(c.budgets),
		deletedBudgets:  cloneSet(c.deletedBudgets),
	}
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Changes lists the rows a store must write to persist a Book's mutations.
// Upserts carry the final row state.
type Changes struct {
	ClearTransactions   bool
	Accounts            []Account
	DeletedAccounts     []string
	Transactions        []Transaction
	DeletedTransactions []string
	Budgets             []Budget
	DeletedBudgets      []string
}

// Empty reports whether there is nothing to write.
func (c Changes) Empty() bool {
	return !c.ClearTransactions &&
		len(c.Accounts) == 0 && len(c.DeletedAccounts) == 0 &&
		len(c.Transactions) == 0 && len(c.DeletedTransactions) == 0 &&
		len(c.Budgets) == 0 && len(c.DeletedBudgets) == 0
}

// Option configures a Book.
type Option func(*Book)

// WithIDFunc overrides id generation.
func WithIDFunc(fn IDFunc) Option {
	return func(b *Book) { b.newID = fn }
}

// NewBook builds a Book over copies of the given collections.
func NewBook(accounts []Account, transactions []Transaction, budgets []Budget, opts ...Option) *Book {
	b := &Book{
		accounts:     slices.Clone(accounts),
		transactions: slices.Clone(transactions),
		budgets:      slices.Clone(budgets),
		newID:        NewID,
		log:          newChangeLog(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Clone returns an independent copy with an empty change log.
func (b *Book) Clone() *Book {
	c := b.fork()
	c.log = newChangeLog()
	return c
}

func (b *Book) fork() *Book {
	return &Book{
		accounts:     slices.Clone(b.accounts),
		transactions: slices.Clone(b.transactions),
		budgets:      slices.Clone(b.budgets),
		newID:        b.newID,
		log:          b.log.clone(),
	}
}

// atomic runs fn on a working copy and adopts it only when fn succeeds.
func (b *Book) atomic(fn func(w *Book) error) error {
	w := b.fork()
	if err := fn(w); err != nil {
		return err
	}
	*b = *w
	return nil
}

// Changes returns the rows touched since the Book was built or cloned.
func (b *Book) Changes() Changes {
	var c Changes
	c.ClearTransactions = b.log.clearTxs
	for _, a := range b.accounts {
		if _, ok := b.log.accounts[a.Name]; ok {
			c.Accounts = append(c.Accounts, a)
		}
	}
	c.DeletedAccounts = sortedKeys(b.log.deletedAccounts)
	for _, tx := range b.transactions {
		if _, ok := b.log.txs[tx.ID]; ok {
			c.Transactions = append(c.Transactions, tx)
		}
	}
	c.DeletedTransactions = sortedKeys(b.log.deletedTxs)
	for _, bg := range b.budgets {
		if _, ok := b.log.budgets[bg.ID]; ok {
			c.Budgets = append(c.Budgets, bg)
		}
	}
	c.DeletedBudgets = sortedKeys(b.log.deletedBudgets)
	return c
}

func sortedKeys(s map[string]struct{}) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (b *Book) touchAccount(name string) {
	b.log.accounts[name] = struct{}{}
	delete(b.log.deletedAccounts, name)
}

func (b *Book) touchTx(id string) {
	b.log.txs[id] = struct{}{}
	delete(b.log.deletedTxs, id)
}

// Accounts returns every account in insertion order.
func (b *Book) Accounts() []Account { return slices.Clone(b.accounts) }

// Transactions returns every transaction in storage order.
func (b *Book) Transactions() []Transaction { return slices.Clone(b.transactions) }

// Budgets returns every budget in storage order.
func (b *Book) Budgets() []Budget { return slices.Clone(b.budgets) }

func (b *Book) accountIndex(name string) int {
	return slices.IndexFunc(b.accounts, func(a Account) bool { return a.Name == name })
}

func (b *Book) txIndex(id string) int {
	return slices.IndexFunc(b.transactions, func(tx Transaction) bool { return tx.ID == id })
}

// Account returns the named account or an *AccountNotFoundError.
func (b *Book) Account(name string) (Account, error) {
	i := b.accountIndex(name)
	if i < 0 {
		return Account{}, b.accountNotFound(name)
	}
	return b.accounts[i], nil
}

func (b *Book) accountNotFound(name string) error {
	return &AccountNotFoundError{Name: name, Suggestion: b.suggest(name)}
}

// suggest returns the closest account name within a small edit distance.
func (b *Book) suggest(name string) string {
	best, bestDist := "", 3
	for _, a := range b.accounts {
		if d := levenshtein.ComputeDistance(name, a.Name); d < bestDist {
			best, bestDist = a.Name, d
		}
	}
	return best
}

// Subaccounts returns the children of parent in insertion order.
func (b *Book) Subaccounts(parent string) []Account {
	var out []Account
	for _, a := range b.accounts {
		if a.ParentAccount == parent {
			out = append(out, a)
		}
	}
	return out
}

func (b *Book) childTotal(parent, exclude string) decimal.Decimal {
	total := zero
	for _, a := range b.accounts {
		if a.ParentAccount == parent && a.Name != exclude {
			total = total.Add(a.Balance)
		}
	}
	return total
}

// EnsureDefaultAccounts creates whichever of Card, Cash and Savings are
// missing, at their seed balances. Calling it again is a no-op.
func (b *Book) EnsureDefaultAccounts() []Account {
	var created []Account
	for _, d := range DefaultAccounts {
		if b.accountIndex(d.Name) >= 0 {
			continue
		}
		seed := SeedBalance(d.Type)
		a := Account{
			Name:           d.Name,
			Type:           d.Type,
			Balance:        seed,
			OpeningBalance: seed.Sub(b.effectsOn(d.Name)),
		}
		b.accounts = append(b.accounts, a)
		b.touchAccount(a.Name)
		created = append(created, a)
	}
	return created
}

// CreateAccount adds an account. Sub-accounts must name an existing
// top-level savings parent; an initial balance is checked against the cap.
func (b *Book) CreateAccount(in AccountInput) (Account, error) {
	in = in.Normalize()
	var created Account
	err := b.atomic(func(w *Book) error {
		if err := in.validate(); err != nil {
			return err
		}
		if w.accountIndex(in.Name) >= 0 {
			return fmt.Errorf("account %q already exists: %w", in.Name, ErrDuplicateName)
		}
		if in.ParentAccount != "" {
			if in.Type != Savings {
				return fmt.Errorf("only savings accounts can have a parent, got %s: %w", in.Type, ErrInvalidParent)
			}
			pi := w.accountIndex(in.ParentAccount)
			if pi < 0 || !w.accounts[pi].IsTopLevelSavings() {
				return fmt.Errorf("parent %q is not a top-level savings account: %w", in.ParentAccount, ErrInvalidParent)
			}
		}
		balance := zero
		if in.InitialBalance != nil {
			balance = *in.InitialBalance
		}
		created = Account{
			Name:           in.Name,
			Type:           in.Type,
			Balance:        balance,
			OpeningBalance: balance.Sub(w.effectsOn(in.Name)),
			ParentAccount:  in.ParentAccount,
		}
		w.accounts = append(w.accounts, created)
		w.touchAccount(created.Name)
		return w.checkCaps(created.Name)
	})
	if err != nil {
		return Account{}, err
	}
	return created, nil
}

// SetBalance edits a balance directly. The opening balance absorbs the
// difference so transaction replay stays consistent.
func (b *Book) SetBalance(name string, balance decimal.Decimal) (Account, error) {
	var updated Account
	err := b.atomic(func(w *Book) error {
		if balance.IsNegative() {
			return fmt.Errorf("balance %s is negative: %w", balance, ErrInvalidAmount)
		}
		i := w.accountIndex(name)
		if i < 0 {
			return fmt.Errorf("account %q: %w", name, ErrNotFound)
		}
		a := &w.accounts[i]
		a.OpeningBalance = a.OpeningBalance.Add(balance.Sub(a.Balance))
		a.Balance = balance
		w.touchAccount(name)
		updated = *a
		return w.checkCaps(name)
	})
	if err != nil {
		return Account{}, err
	}
	return updated, nil
}

// DeleteAccount removes a sub-account. Transactions that name it are kept;
// account references are soft.
func (b *Book) DeleteAccount(name string) error {
	return b.atomic(func(w *Book) error {
		i := w.accountIndex(name)
		if i < 0 {
			return fmt.Errorf("account %q: %w", name, ErrNotFound)
		}
		if !w.accounts[i].IsSubaccount() {
			return fmt.Errorf("account %q is top-level and cannot be deleted: %w", name, ErrInvalidOperation)
		}
		w.accounts = slices.Delete(w.accounts, i, i+1)
		delete(w.log.accounts, name)
		w.log.deletedAccounts[name] = struct{}{}
		return nil
	})
}

// ZeroBalances sets every balance to zero without touching transactions.
func (b *Book) ZeroBalances() {
	for i := range b.accounts {
		a := &b.accounts[i]
		a.Balance = zero
		a.OpeningBalance = b.effectsOn(a.Name).Neg()
		b.touchAccount(a.Name)
	}
}

// checkCaps validates the 90% rule for each named account: a sub-account
// against its parent and siblings, a top-level savings account against its
// children.
func (b *Book) checkCaps(names ...string) error {
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		i := b.accountIndex(name)
		if i < 0 {
			continue
		}
		a := b.accounts[i]
		switch {
		case a.IsSubaccount():
			pi := b.accountIndex(a.ParentAccount)
			if pi < 0 {
				continue
			}
			if err := CheckCap(b.accounts[pi].Balance, b.childTotal(a.ParentAccount, a.Name), a.Balance); err != nil {
				capErr := err.(*CapExceededError)
				capErr.Account, capErr.Parent = a.Name, a.ParentAccount
				return capErr
			}
		case a.IsTopLevelSavings():
			if err := checkParent(a.Balance, b.childTotal(a.Name, "")); err != nil {
				capErr := err.(*CapExceededError)
				capErr.Account = a.Name
				return capErr
			}
		}
	}
	return nil
}

// effectsOn sums the balance effects of every stored transaction on name.
func (b *Book) effectsOn(name string) decimal.Decimal {
	total := zero
	for _, tx := range b.transactions {
		for _, e := range tx.Effects() {
			if e.Account == name {
				total = total.Add(e.Delta)
			}
		}
	}
	return total
}

// Replay recomputes every balance from opening balances plus transaction
// effects. It must agree with the incrementally maintained balances.
func (b *Book) Replay() map[string]decimal.Decimal {
	return Replay(b.accounts, b.transactions)
}

// Replay recomputes balances from opening balances and transactions.
// Effects on accounts that no longer exist are ignored.
func Replay(accounts []Account, txs []Transaction) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		out[a.Name] = a.OpeningBalance
	}
	for _, tx := range txs {
		for _, e := range tx.Effects() {
			if bal, ok := out[e.Account]; ok {
				out[e.Account] = bal.Add(e.Delta)
			}
		}
	}
	return out
}
