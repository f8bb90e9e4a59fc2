// Package worker mirrors booking balances from the snapshot store into a
// spreadsheet destination, driven by AMQP events.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"reservas/internal/amqp"
	"reservas/internal/core"
	"reservas/internal/ledger"
	applog "reservas/internal/log"
	"reservas/internal/sheets"
)

// MirrorWorker applies booking mirror events. Events carry identifiers only;
// the worker reads the current booking from the snapshot store, so a burst of
// events for the same booking collapses into idempotent upserts of the latest
// state.
type MirrorWorker struct {
	snap        ledger.Snapshotter
	mirror      sheets.Mirror
	concurrency int
}

func NewMirrorWorker(snap ledger.Snapshotter, mirror sheets.Mirror, concurrency int) *MirrorWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &MirrorWorker{
		snap:        snap,
		mirror:      mirror,
		concurrency: concurrency,
	}
}

// HandleBookingEvent processes one mirror event from AMQP. Errors propagate
// so the consumer requeues the delivery.
func (w *MirrorWorker) HandleBookingEvent(ctx context.Context, msg *amqp.BookingEventMessage) error {
	slog.InfoContext(ctx, "Processing booking event",
		applog.FieldAction, msg.Action,
		applog.FieldProfile, msg.Profile,
		applog.FieldBookingID, msg.BookingID)

	switch msg.Action {
	case amqp.ActionUpsert:
		return w.upsertBooking(ctx, msg.Profile, msg.BookingID)
	case amqp.ActionRemove:
		if err := w.mirror.RemoveRow(ctx, msg.Profile, msg.BookingID); err != nil {
			return fmt.Errorf("remove row: %w", err)
		}
		return nil
	case amqp.ActionRemoveProfile:
		if err := w.mirror.RemoveProfile(ctx, msg.Profile); err != nil {
			return fmt.Errorf("remove profile worksheet: %w", err)
		}
		return nil
	default:
		// Unknown actions are dropped, not requeued: redelivery cannot fix them.
		slog.WarnContext(ctx, "Ignoring unknown event action", applog.FieldAction, msg.Action)
		return nil
	}
}

func (w *MirrorWorker) upsertBooking(ctx context.Context, profile, bookingID string) error {
	state, err := w.snap.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	booking, ok := findBooking(state, profile, bookingID)
	if !ok {
		// The booking vanished between publish and delivery. Converge on
		// the current state instead of requeueing forever.
		slog.WarnContext(ctx, "Booking not in snapshot, removing row instead",
			applog.FieldProfile, profile, applog.FieldBookingID, bookingID)
		if err := w.mirror.RemoveRow(ctx, profile, bookingID); err != nil {
			return fmt.Errorf("remove stale row: %w", err)
		}
		return nil
	}

	if err := w.mirror.UpsertRow(ctx, profile, balanceRow(booking)); err != nil {
		return fmt.Errorf("upsert row: %w", err)
	}
	return nil
}

// Backfill mirrors every booking in the snapshot store. Run at startup to
// recover from missed events or worker downtime.
func (w *MirrorWorker) Backfill(ctx context.Context) error {
	state, err := w.snap.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot for backfill: %w", err)
	}

	total := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for profile, bookings := range state {
		total += len(bookings)
		for _, b := range bookings {
			profile, b := profile, b
			g.Go(func() error {
				if err := w.mirror.UpsertRow(gctx, profile, balanceRow(b)); err != nil {
					return fmt.Errorf("backfill %s/%s: %w", profile, b.ID, err)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Backfill completed", "bookings", total, "profiles", len(state))
	return nil
}

func findBooking(state map[string][]core.Booking, profile, bookingID string) (core.Booking, bool) {
	for _, b := range state[profile] {
		if b.ID == bookingID {
			return b, true
		}
	}
	return core.Booking{}, false
}

func balanceRow(b core.Booking) sheets.BalanceRow {
	return sheets.BalanceRow{
		BookingID:         b.ID,
		ReservationNumber: b.ReservationNumber,
		Totals:            core.CalculateTotals(b),
	}
}
