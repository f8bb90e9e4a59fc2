package backend

import (
	"context"
	"fmt"
	"log/slog"

	"reservas/internal/amqp"
	"reservas/internal/ledger"
	"reservas/internal/services"
	"reservas/internal/snapshot"
	"reservas/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend assembles the snapshotter for the configured type, seeds the
// ledger store from it, and wires the booking service with an optional AMQP
// publisher. A broker that cannot be reached degrades to no mirroring; it
// never blocks startup.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if !config.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", config.Type)
	}

	snap, cleanupSnap, err := f.createSnapshotter(config)
	if err != nil {
		return nil, err
	}

	store := ledger.NewStore(ctx, snap)

	var publisher services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without mirroring", "error", err)
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewBookingService(store, publisher)

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"amqp_enabled", publisher != nil)

	cleanup := func() error {
		errSvc := svc.Close()
		if cleanupSnap != nil {
			if err := cleanupSnap(); err != nil {
				return err
			}
		}
		return errSvc
	}

	return &Result{
		Service: svc,
		Store:   store,
		Cleanup: cleanup,
	}, nil
}

func (f *DefaultFactory) createSnapshotter(config Config) (ledger.Snapshotter, CleanupFunc, error) {
	switch config.Type {
	case MemoryBackend:
		return snapshot.NewMemoryStore(), nil, nil
	case FileBackend:
		fs, err := snapshot.NewFileStore(config.SnapshotPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize file snapshot store: %w", err)
		}
		f.logger.Info("Initialized file snapshot store", "path", config.SnapshotPath)
		return fs, nil, nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite snapshot store", "db_path", config.SQLiteDBPath)
		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
