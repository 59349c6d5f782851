package backend

import (
	"context"

	"kashela/internal/services"
	"kashela/internal/storage"
	"kashela/internal/store"
)

// MirrorTracker records which transactions have been copied to the
// spreadsheet. Only the SQLite backend provides one.
type MirrorTracker interface {
	GetPendingMirror(ctx context.Context, limit int) ([]storage.PendingMirror, error)
	MarkMirrored(ctx context.Context, id string) error
	MarkMirrorError(ctx context.Context, id string) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired data layer. Publisher and Mirror are nil
// when the backend does not support them.
type BackendResult struct {
	Repository store.Repository
	Publisher  services.Publisher
	Mirror     MirrorTracker
	Cleanup    CleanupFunc
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Event publishing; optional and SQLite only.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
