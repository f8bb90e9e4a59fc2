package main

import (
	"context"
	"errors"
	"os"
	"time"

	"reservas/internal/amqp"
	"reservas/internal/cli"
	"reservas/internal/ledger"
	applog "reservas/internal/log"
	"reservas/internal/sheets"
	gsheet "reservas/internal/sheets/google"
	sheetsmem "reservas/internal/sheets/memory"
	"reservas/internal/snapshot"
	"reservas/internal/storage"
	"reservas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting reservas-worker")

	snap, cleanup, err := newSnapshotter(cfg.DataBackend, cfg.SnapshotPath, cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize snapshot store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	var mirror sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = sheetsmem.New()
		logger.Info("Google Sheets disabled, mirroring in memory only")
	}

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the mirror worker")
		os.Exit(1)
	}
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(snap, mirror, cfg.MirrorConcurrency)

	ctx := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Recover anything missed while the worker was down.
	logger.Info("Running startup backfill")
	if err := mirrorWorker.Backfill(ctx); err != nil {
		logger.Error("Startup backfill failed", "error", err)
		// Keep running; event consumption still converges per booking.
	}

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		if err := amqpClient.ConsumeBookingEvents(ctx, mirrorWorker.HandleBookingEvent); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", "error", err)
			}
		}
	}()

	ticker := time.NewTicker(cfg.BackfillInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-consumeDone
			logger.Info("Worker stopped gracefully")
			return
		case <-consumeDone:
			logger.Error("Consumer exited, shutting down")
			os.Exit(1)
		case <-ticker.C:
			if err := mirrorWorker.Backfill(ctx); err != nil {
				logger.Error("Periodic backfill failed", "error", err)
			}
		}
	}
}

// newSnapshotter opens a read view over the server's snapshot store. The
// memory backend has no cross-process state, so the worker rejects it.
func newSnapshotter(backendType, snapshotPath, dbPath string) (ledger.Snapshotter, func() error, error) {
	switch backendType {
	case "file":
		fs, err := snapshot.NewFileStore(snapshotPath)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	case "sqlite":
		repo, err := storage.NewSQLiteRepository(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	default:
		return nil, nil, errors.New("worker requires the file or sqlite backend")
	}
}
