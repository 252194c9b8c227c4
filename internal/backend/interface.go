// Package backend builds the store and event publisher the server and
// worker run on, from configuration.
package backend

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// Store is a services.Store that can also serve single transactions to
// the export worker.
type Store interface {
	services.Store
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
}

// Watcher is implemented by stores that notice edits made by other
// processes.
type Watcher interface {
	Watch(ctx context.Context, onChange func(context.Context) error) error
}

// Result contains the store and the optional watcher.
type Result struct {
	Store   Store
	Watcher Watcher
}

// Factory creates stores and publishers based on configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*Result, error)
	// CreatePublisher returns nil when event publishing is not configured.
	CreatePublisher(ctx context.Context, config Config) services.Publisher
}

// Config holds what backend creation needs.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	KVPath       string
	Watch        bool

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	KVBackend     BackendType = "kv"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, KVBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
