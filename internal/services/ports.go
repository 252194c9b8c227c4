package services

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Store persists finance state. Apply must write every change in one
// atomic unit: all of it lands or none of it does.
type Store interface {
	LoadAccounts(ctx context.Context) ([]core.Account, error)
	LoadTransactions(ctx context.Context) ([]core.Transaction, error)
	LoadBudgets(ctx context.Context) ([]core.Budget, error)
	Apply(ctx context.Context, changes core.Changes) error
	Close() error
}

// EventType names a committed ledger change.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventLedgerCleared      EventType = "ledger.cleared"
)

// Event is published after a ledger change has been committed.
type Event struct {
	Type          EventType
	TransactionID string
	Timestamp     time.Time
}

// Publisher delivers ledger events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
