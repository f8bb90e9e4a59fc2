package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"reservas/internal/amqp"
	"reservas/internal/core"
	"reservas/internal/ledger"
	applog "reservas/internal/log"
	"reservas/internal/snapshot"
)

type fakePublisher struct {
	events  []*amqp.BookingEventMessage
	failAll bool
	closed  bool
}

func (p *fakePublisher) PublishBookingEvent(_ context.Context, msg *amqp.BookingEventMessage) error {
	if p.failAll {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, msg)
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *fakePublisher) actions() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Action
	}
	return out
}

func newTestService(t *testing.T) (*BookingService, *fakePublisher) {
	t.Helper()
	store := ledger.NewStore(context.Background(), snapshot.NewMemoryStore())
	pub := &fakePublisher{}
	return NewBookingService(store, pub), pub
}

func TestBookingMutationsPublishUpserts(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	booking, err := svc.CreateBooking(ctx, "Ana", "RES-001")
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if _, err := svc.AddItem(ctx, "Ana", booking.ID, core.Item{Name: "Hotel", Value: core.Money{Cents: 100000}, Currency: core.ARS}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := svc.AddPayment(ctx, "Ana", booking.ID, core.Payment{Amount: core.Money{Cents: 40000}, Currency: core.ARS}); err != nil {
		t.Fatalf("add payment: %v", err)
	}

	want := []string{amqp.ActionUpsert, amqp.ActionUpsert, amqp.ActionUpsert}
	got := pub.actions()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: got %s, want %s", i, got[i], want[i])
		}
	}
	for _, e := range pub.events {
		if e.Profile != "Ana" || e.BookingID != booking.ID {
			t.Fatalf("event targets wrong booking: %+v", e)
		}
	}
}

func TestRejectedMutationPublishesNothing(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateBooking(ctx, "Nadie", "RES-001"); !errors.Is(err, ledger.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("rejected mutation must not publish, got %v", pub.actions())
	}
}

func TestDeleteProfilePublishesProfileRemoval(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if err := svc.DeleteProfile(ctx, "Ana"); err != nil {
		t.Fatalf("delete profile: %v", err)
	}

	last := pub.events[len(pub.events)-1]
	if last.Action != amqp.ActionRemoveProfile || last.Profile != "Ana" || last.BookingID != "" {
		t.Fatalf("unexpected final event: %+v", last)
	}
}

func TestRenameProfileRebuildsMirror(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	b1, err := svc.CreateBooking(ctx, "Ana", "RES-001")
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	b2, err := svc.CreateBooking(ctx, "Ana", "RES-002")
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	pub.events = nil

	if err := svc.RenameProfile(ctx, "Ana", "Ana Maria"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	got := pub.actions()
	if len(got) != 3 || got[0] != amqp.ActionRemoveProfile {
		t.Fatalf("expected removal then two upserts, got %v", got)
	}
	if pub.events[0].Profile != "Ana" {
		t.Fatalf("removal must target old name, got %q", pub.events[0].Profile)
	}
	seen := map[string]bool{}
	for _, e := range pub.events[1:] {
		if e.Action != amqp.ActionUpsert || e.Profile != "Ana Maria" {
			t.Fatalf("unexpected upsert: %+v", e)
		}
		seen[e.BookingID] = true
	}
	if !seen[b1.ID] || !seen[b2.ID] {
		t.Fatalf("upserts must cover both bookings, got %v", seen)
	}
}

func TestRenameProfileToSelfPublishesNothing(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	pub.events = nil

	if err := svc.RenameProfile(ctx, "Ana", "Ana"); err != nil {
		t.Fatalf("rename to self: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("self rename must not publish, got %v", pub.actions())
	}
}

func TestDeleteBookingsPublishesPerRemovedID(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	b1, _ := svc.CreateBooking(ctx, "Ana", "RES-001")
	b2, _ := svc.CreateBooking(ctx, "Ana", "RES-002")
	pub.events = nil

	removed, err := svc.DeleteBookings(ctx, "Ana", []string{b1.ID, "unknown", b2.ID})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", removed)
	}
	if got := pub.actions(); len(got) != 2 || got[0] != amqp.ActionRemove || got[1] != amqp.ActionRemove {
		t.Fatalf("expected two remove events, got %v", got)
	}
}

func TestDeleteAllBookingsPublishesPerBooking(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	svc.CreateBooking(ctx, "Ana", "RES-001")
	svc.CreateBooking(ctx, "Ana", "RES-002")
	pub.events = nil

	removed, err := svc.DeleteAllBookings(ctx, "Ana")
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %v", removed)
	}
	if got := pub.actions(); len(got) != 2 || got[0] != amqp.ActionRemove || got[1] != amqp.ActionRemove {
		t.Fatalf("expected two remove events, got %v", got)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	svc, pub := newTestService(t)
	pub.failAll = true
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	booking, err := svc.CreateBooking(ctx, "Ana", "RES-001")
	if err != nil {
		t.Fatalf("mutation must survive publish failure: %v", err)
	}
	if _, err := svc.GetBooking(ctx, "Ana", booking.ID); err != nil {
		t.Fatalf("booking must be stored: %v", err)
	}
}

func TestNilPublisherIsAllowed(t *testing.T) {
	store := ledger.NewStore(context.Background(), snapshot.NewMemoryStore())
	svc := NewBookingService(store, nil)
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if _, err := svc.CreateBooking(ctx, "Ana", "RES-001"); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("close with nil publisher: %v", err)
	}
}

func TestCloseClosesPublisher(t *testing.T) {
	svc, pub := newTestService(t)
	if err := svc.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !pub.closed {
		t.Fatalf("publisher not closed")
	}
}

func TestPublishFailureLogsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	store := ledger.NewStore(context.Background(), snapshot.NewMemoryStore())
	svc := NewBookingService(store, &fakePublisher{failAll: true})
	ctx := context.Background()

	if err := svc.CreateProfile(ctx, "Ana"); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	booking, err := svc.CreateBooking(ctx, "Ana", "RES-001")
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		applog.FieldAction + "=",
		applog.FieldProfile + "=Ana",
		applog.FieldBookingID + "=" + booking.ID,
		applog.FieldError + "=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
