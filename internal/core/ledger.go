package core

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Transaction returns the transaction with the given id.
func (b *Book) Transaction(id string) (Transaction, error) {
	i := b.txIndex(id)
	if i < 0 {
		return Transaction{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	return b.transactions[i], nil
}

// ListTransactions returns the transactions matching f, newest first.
func (b *Book) ListTransactions(f Filter) []Transaction {
	out := make([]Transaction, 0, len(b.transactions))
	for _, tx := range b.transactions {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	SortTransactions(out)
	return out
}

// AddTransaction validates the input against the current balances and
// records it together with its balance effects.
func (b *Book) AddTransaction(in TransactionInput) (Transaction, error) {
	var added Transaction
	err := b.atomic(func(w *Book) error {
		id, err := w.newID()
		if err != nil {
			return err
		}
		tx, touched, err := w.insert(id, in)
		if err != nil {
			return err
		}
		added = tx
		return w.checkCaps(touched...)
	})
	if err != nil {
		return Transaction{}, err
	}
	return added, nil
}

// DeleteTransaction removes a transaction and reverses its effects. Sides
// whose account no longer exists are skipped and returned.
func (b *Book) DeleteTransaction(id string) (Transaction, []string, error) {
	var (
		removed Transaction
		skipped []string
	)
	err := b.atomic(func(w *Book) error {
		tx, touched, missing, err := w.remove(id)
		if err != nil {
			return err
		}
		removed, skipped = tx, missing
		return w.checkCaps(touched...)
	})
	if err != nil {
		return Transaction{}, nil, err
	}
	return removed, skipped, nil
}

// UpdateTransaction replaces a transaction in one step. The old effects are
// reversed, the input is validated against that state, and caps are checked
// once on the result. The id is kept.
func (b *Book) UpdateTransaction(id string, in TransactionInput) (Transaction, []string, error) {
	var (
		updated Transaction
		skipped []string
	)
	err := b.atomic(func(w *Book) error {
		_, reversed, missing, err := w.remove(id)
		if err != nil {
			return err
		}
		tx, applied, err := w.insert(id, in)
		if err != nil {
			return err
		}
		updated, skipped = tx, missing
		return w.checkCaps(append(reversed, applied...)...)
	})
	if err != nil {
		return Transaction{}, nil, err
	}
	return updated, skipped, nil
}

// ClearAll deletes every transaction. Top-level accounts return to their
// seed balance and sub-accounts to zero, which keeps every parent within cap.
func (b *Book) ClearAll() {
	b.transactions = nil
	b.log.txs = map[string]struct{}{}
	b.log.deletedTxs = map[string]struct{}{}
	b.log.clearTxs = true
	for i := range b.accounts {
		a := &b.accounts[i]
		if a.IsSubaccount() {
			a.Balance = zero
		} else {
			a.Balance = SeedBalance(a.Type)
		}
		a.OpeningBalance = a.Balance
		b.touchAccount(a.Name)
	}
}

// insert runs the validation chain and applies the effects. It returns the
// names of the accounts whose balance changed. Caps are left to the caller.
func (b *Book) insert(id string, in TransactionInput) (Transaction, []string, error) {
	in = in.Normalize()
	if err := in.validate(); err != nil {
		return Transaction{}, nil, err
	}

	si := b.accountIndex(in.Account)
	if si < 0 {
		return Transaction{}, nil, b.accountNotFound(in.Account)
	}
	src := b.accounts[si]

	if !in.Amount.IsPositive() {
		return Transaction{}, nil, fmt.Errorf("amount %s must be positive: %w", in.Amount, ErrInvalidAmount)
	}
	if in.Type == Expense && src.Type == Savings {
		return Transaction{}, nil, fmt.Errorf("expenses cannot be paid from savings account %q: %w", src.Name, ErrInvalidOperation)
	}
	if in.Type != Income && in.Amount.GreaterThan(src.Balance) {
		return Transaction{}, nil, &InsufficientFundsError{Account: src.Name, Balance: src.Balance, Amount: in.Amount}
	}

	tx := Transaction{
		ID:       id,
		Amount:   in.Amount,
		Type:     in.Type,
		Date:     in.Date,
		Category: in.Category,
		Account:  src.Name,
		Note:     in.Note,
	}

	if in.Type == Transfer {
		di := b.accountIndex(in.ToAccount)
		if di < 0 {
			return Transaction{}, nil, b.accountNotFound(in.ToAccount)
		}
		from, to := b.normalize(src), b.normalize(b.accounts[di])
		if from == to {
			return Transaction{}, nil, fmt.Errorf("transfer from %q to %q moves money within the same account: %w",
				src.Name, in.ToAccount, ErrInvalidOperation)
		}
		if from != src.Name {
			debited := b.accounts[b.accountIndex(from)]
			if in.Amount.GreaterThan(debited.Balance) {
				return Transaction{}, nil, &InsufficientFundsError{Account: debited.Name, Balance: debited.Balance, Amount: in.Amount}
			}
		}
		tx.Account, tx.ToAccount, tx.Category = from, to, TransferCategory
	}

	touched, _ := b.apply(tx.Effects(), false)
	b.transactions = append(b.transactions, tx)
	b.touchTx(tx.ID)
	return tx, touched, nil
}

// remove deletes a transaction and reverses its effects. It returns the
// accounts it changed and the ones it had to skip.
func (b *Book) remove(id string) (Transaction, []string, []string, error) {
	i := b.txIndex(id)
	if i < 0 {
		return Transaction{}, nil, nil, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	tx := b.transactions[i]
	touched, missing := b.apply(tx.Effects(), true)
	b.transactions = slices.Delete(b.transactions, i, i+1)
	delete(b.log.txs, id)
	b.log.deletedTxs[id] = struct{}{}
	return tx, touched, missing, nil
}

// normalize maps a savings account to the top-level savings account that
// transfers land on. Other accounts map to themselves.
func (b *Book) normalize(a Account) string {
	if a.Type == Savings && a.ParentAccount != "" {
		return a.ParentAccount
	}
	return a.Name
}

func (b *Book) apply(effects []Effect, reverse bool) (touched, missing []string) {
	for _, e := range effects {
		i := b.accountIndex(e.Account)
		if i < 0 {
			missing = append(missing, e.Account)
			continue
		}
		delta := e.Delta
		if reverse {
			delta = delta.Neg()
		}
		b.accounts[i].Balance = b.accounts[i].Balance.Add(delta)
		b.touchAccount(e.Account)
		touched = append(touched, e.Account)
	}
	return touched, missing
}

// CreateBudget stores a new budget.
func (b *Book) CreateBudget(in BudgetInput) (Budget, error) {
	id, err := b.newID()
	if err != nil {
		return Budget{}, err
	}
	bg, err := in.build(id)
	if err != nil {
		return Budget{}, err
	}
	b.budgets = append(b.budgets, bg)
	b.log.budgets[bg.ID] = struct{}{}
	delete(b.log.deletedBudgets, bg.ID)
	return bg, nil
}

// DeleteBudget removes a budget.
func (b *Book) DeleteBudget(id string) error {
	i := slices.IndexFunc(b.budgets, func(bg Budget) bool { return bg.ID == id })
	if i < 0 {
		return fmt.Errorf("budget %q: %w", id, ErrNotFound)
	}
	b.budgets = slices.Delete(b.budgets, i, i+1)
	delete(b.log.budgets, id)
	b.log.deletedBudgets[id] = struct{}{}
	return nil
}

// ListBudgets returns budgets newest start first.
func (b *Book) ListBudgets() []Budget {
	out := b.Budgets()
	SortBudgets(out)
	return out
}

// BudgetProgress reports spending for every budget overlapping [from, to].
func (b *Book) BudgetProgress(from, to Date) ([]BudgetProgress, error) {
	for _, d := range []Date{from, to} {
		if d == "" {
			continue
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	if from != "" && to != "" && to < from {
		return nil, fmt.Errorf("range ends %s before it starts %s: %w", to, from, ErrInvalid)
	}
	return Progress(b.budgets, b.transactions, from, to), nil
}

// Balance is a convenience for tests and reports.
func (b *Book) Balance(name string) (decimal.Decimal, bool) {
	i := b.accountIndex(name)
	if i < 0 {
		return zero, false
	}
	return b.accounts[i].Balance, true
}
