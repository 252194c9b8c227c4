package backend

import (
	"context"
	"fmt"

	"fintrack/internal/adapters"
	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
	"fintrack/internal/storage/kv"
	"fintrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &Result{Store: repo}, nil

	case KVBackend:
		store, err := kv.Open(config.KVPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		res := &Result{Store: store}
		if config.Watch {
			res.Watcher = store
		}
		f.logger.InfoContext(ctx, "Initialized kv backend", "path", config.KVPath, "watch", config.Watch)
		return res, nil

	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend")
		return &Result{Store: memory.New(memory.State{})}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreatePublisher implements Factory.CreatePublisher. A broker that cannot
// be reached is logged and the service runs without events.
func (f *DefaultFactory) CreatePublisher(ctx context.Context, config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return adapters.NewAMQPPublisher(client)
}
