package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"reservas/internal/amqp"
	"reservas/internal/core"
	sheetsmem "reservas/internal/sheets/memory"
)

type fakeSnap struct {
	state   map[string][]core.Booking
	loadErr error
}

func (f *fakeSnap) Load(context.Context) (map[string][]core.Booking, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.state, nil
}

func (f *fakeSnap) Save(_ context.Context, state map[string][]core.Booking) error {
	f.state = state
	return nil
}

func booking(id, reservation string, items []core.Item, payments []core.Payment) core.Booking {
	return core.Booking{
		ID:                id,
		ReservationNumber: reservation,
		Items:             items,
		Payments:          payments,
		CreatedAt:         time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandleUpsertMirrorsBalances(t *testing.T) {
	snap := &fakeSnap{state: map[string][]core.Booking{
		"Ana": {booking("b1", "RES-001",
			[]core.Item{
				{ID: "i1", Name: "Hotel", Value: core.Money{Cents: 100000}, Currency: core.ARS},
				{ID: "i2", Name: "Tour", Value: core.Money{Cents: 5000}, Currency: core.USD},
			},
			[]core.Payment{
				{ID: "p1", Amount: core.Money{Cents: 40000}, Currency: core.ARS, Date: time.Now()},
			})},
	}}
	mirror := sheetsmem.New()
	w := NewMirrorWorker(snap, mirror, 2)

	err := w.HandleBookingEvent(context.Background(), amqp.NewBookingUpsertMessage("Ana", "b1"))
	if err != nil {
		t.Fatalf("handle upsert: %v", err)
	}

	rows := mirror.Rows("Ana")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row.ReservationNumber != "RES-001" {
		t.Fatalf("reservation: %q", row.ReservationNumber)
	}
	if row.Totals.BalanceARS.Cents != 60000 {
		t.Fatalf("balance ARS cents: %d", row.Totals.BalanceARS.Cents)
	}
	if row.Totals.BalanceUSD.Cents != 5000 {
		t.Fatalf("balance USD cents: %d", row.Totals.BalanceUSD.Cents)
	}
}

func TestHandleUpsertForMissingBookingRemovesRow(t *testing.T) {
	snap := &fakeSnap{state: map[string][]core.Booking{"Ana": {}}}
	mirror := sheetsmem.New()
	w := NewMirrorWorker(snap, mirror, 1)

	mirror.UpsertRow(context.Background(), "Ana", balanceRow(booking("b1", "RES-001", nil, nil)))

	err := w.HandleBookingEvent(context.Background(), amqp.NewBookingUpsertMessage("Ana", "b1"))
	if err != nil {
		t.Fatalf("handle stale upsert: %v", err)
	}
	if rows := mirror.Rows("Ana"); len(rows) != 0 {
		t.Fatalf("stale row not removed: %v", rows)
	}
}

func TestHandleRemoveEvents(t *testing.T) {
	snap := &fakeSnap{state: map[string][]core.Booking{}}
	mirror := sheetsmem.New()
	w := NewMirrorWorker(snap, mirror, 1)
	ctx := context.Background()

	mirror.UpsertRow(ctx, "Ana", balanceRow(booking("b1", "RES-001", nil, nil)))
	mirror.UpsertRow(ctx, "Ana", balanceRow(booking("b2", "RES-002", nil, nil)))

	if err := w.HandleBookingEvent(ctx, amqp.NewBookingRemoveMessage("Ana", "b1")); err != nil {
		t.Fatalf("handle remove: %v", err)
	}
	if rows := mirror.Rows("Ana"); len(rows) != 1 || rows[0].BookingID != "b2" {
		t.Fatalf("unexpected rows after remove: %v", rows)
	}

	if err := w.HandleBookingEvent(ctx, amqp.NewProfileRemoveMessage("Ana")); err != nil {
		t.Fatalf("handle profile remove: %v", err)
	}
	if rows := mirror.Rows("Ana"); len(rows) != 0 {
		t.Fatalf("worksheet not dropped: %v", rows)
	}
}

func TestHandleUnknownActionIsDropped(t *testing.T) {
	w := NewMirrorWorker(&fakeSnap{}, sheetsmem.New(), 1)
	msg := &amqp.BookingEventMessage{Action: "compact", Profile: "Ana"}
	if err := w.HandleBookingEvent(context.Background(), msg); err != nil {
		t.Fatalf("unknown action must not requeue: %v", err)
	}
}

func TestHandleUpsertPropagatesSnapshotError(t *testing.T) {
	w := NewMirrorWorker(&fakeSnap{loadErr: errors.New("disk gone")}, sheetsmem.New(), 1)
	err := w.HandleBookingEvent(context.Background(), amqp.NewBookingUpsertMessage("Ana", "b1"))
	if err == nil {
		t.Fatalf("expected error for snapshot failure")
	}
}

func TestBackfillMirrorsEverything(t *testing.T) {
	snap := &fakeSnap{state: map[string][]core.Booking{
		"Ana": {
			booking("b1", "RES-001", []core.Item{{ID: "i1", Name: "Hotel", Value: core.Money{Cents: 100000}, Currency: core.ARS}}, nil),
			booking("b2", "RES-002", nil, nil),
		},
		"Bruno": {
			booking("b3", "RES-003", []core.Item{{ID: "i2", Name: "Vuelo", Value: core.Money{Cents: 30000}, Currency: core.USD}}, nil),
		},
	}}
	mirror := sheetsmem.New()
	w := NewMirrorWorker(snap, mirror, 4)

	if err := w.Backfill(context.Background()); err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if rows := mirror.Rows("Ana"); len(rows) != 2 {
		t.Fatalf("Ana rows: %d", len(rows))
	}
	if rows := mirror.Rows("Bruno"); len(rows) != 1 {
		t.Fatalf("Bruno rows: %d", len(rows))
	}
}
