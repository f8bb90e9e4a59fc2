// Package backend builds the ledger stack (snapshotter, store, service) for
// a configured persistence backend.
package backend

import (
	"context"

	"reservas/internal/ledger"
	"reservas/internal/services"
)

// Type selects the snapshot persistence adapter.
type Type string

const (
	MemoryBackend Type = "memory"
	FileBackend   Type = "file"
	SQLiteBackend Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, FileBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs to assemble a backend.
type Config struct {
	Type Type

	SnapshotPath string
	SQLiteDBPath string

	// Empty AMQPURL disables mirror event publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result bundles the assembled service with its cleanup.
type Result struct {
	Service *services.BookingService
	Store   *ledger.Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
