package backend

import (
	"context"
	"errors"
	"fmt"

	"kashela/internal/amqp"
	klog "kashela/internal/log"
	"kashela/internal/storage"
	"kashela/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *klog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *klog.Logger) Factory {
	if logger == nil {
		logger = klog.New(klog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(klog.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	result := &BackendResult{Repository: repo, Mirror: repo, Cleanup: repo.Close}

	// AMQP is optional: a broker outage at startup leaves rows pending for
	// the worker's sweep.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			result.Cleanup = func() error {
				return errors.Join(client.Close(), repo.Close())
			}
		}
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", result.Publisher != nil)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) *BackendResult {
	if config.AMQPURL != "" {
		f.logger.Warn("AMQP is ignored with the memory backend: the worker cannot read process-local data")
	}
	f.logger.Info("Initialized memory backend")
	return &BackendResult{Repository: memory.New()}
}
