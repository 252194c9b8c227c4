// Package memory is an in-process finance store. It backs tests and the
// server's memory backend, and its State is the document the kv store
// persists.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"fintrack/internal/core"
)

// State is a full copy of the persisted rows.
type State struct {
	Accounts     []core.Account     `json:"accounts"`
	Transactions []core.Transaction `json:"transactions"`
	Budgets      []core.Budget      `json:"budgets"`
}

// Clone returns a deep copy of the row slices.
func (s State) Clone() State {
	return State{
		Accounts:     slices.Clone(s.Accounts),
		Transactions: slices.Clone(s.Transactions),
		Budgets:      slices.Clone(s.Budgets),
	}
}

// Apply returns the state with c written to it. s is not modified.
// Upserts keep a row's position; new rows are appended.
func (s State) Apply(c core.Changes) State {
	next := s.Clone()

	if c.ClearTransactions {
		next.Transactions = nil
	}
	for _, id := range c.DeletedTransactions {
		next.Transactions = slices.DeleteFunc(next.Transactions, func(t core.Transaction) bool { return t.ID == id })
	}
	for _, t := range c.Transactions {
		next.Transactions = upsert(next.Transactions, t, func(o core.Transaction) bool { return o.ID == t.ID })
	}

	for _, name := range c.DeletedAccounts {
		next.Accounts = slices.DeleteFunc(next.Accounts, func(a core.Account) bool { return a.Name == name })
	}
	for _, a := range c.Accounts {
		next.Accounts = upsert(next.Accounts, a, func(o core.Account) bool { return o.Name == a.Name })
	}

	for _, id := range c.DeletedBudgets {
		next.Budgets = slices.DeleteFunc(next.Budgets, func(b core.Budget) bool { return b.ID == id })
	}
	for _, b := range c.Budgets {
		next.Budgets = upsert(next.Budgets, b, func(o core.Budget) bool { return o.ID == b.ID })
	}
	return next
}

func upsert[T any](rows []T, row T, same func(T) bool) []T {
	if i := slices.IndexFunc(rows, same); i >= 0 {
		rows[i] = row
		return rows
	}
	return append(rows, row)
}

// Store keeps State behind a mutex.
type Store struct {
	mu    sync.RWMutex
	state State
}

// New returns a store seeded with initial.
func New(initial State) *Store {
	return &Store{state: initial.Clone()}
}

func (s *Store) LoadAccounts(context.Context) ([]core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Accounts), nil
}

func (s *Store) LoadTransactions(context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Transactions), nil
}

func (s *Store) LoadBudgets(context.Context) ([]core.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Budgets), nil
}

// Apply swaps in the updated state. It cannot fail part way.
func (s *Store) Apply(ctx context.Context, c core.Changes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.Apply(c)
	return nil
}

// GetTransaction returns a transaction by id.
func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.state.Transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %q: %w", id, core.ErrNotFound)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) Close() error { return nil }
