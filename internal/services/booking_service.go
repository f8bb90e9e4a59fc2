// Package services orchestrates ledger mutations and the mirror event
// pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reservas/internal/amqp"
	"reservas/internal/core"
	"reservas/internal/ledger"
	applog "reservas/internal/log"
)

// EventPublisher publishes booking mirror events. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, msg *amqp.BookingEventMessage) error
	Close() error
}

// BookingService wraps the ledger store and notifies the mirror pipeline
// after each successful mutation. Publish failures are logged and never
// surfaced: the in-memory ledger is the source of truth and the worker
// backfills on startup.
type BookingService struct {
	store     *ledger.Store
	publisher EventPublisher
}

func NewBookingService(store *ledger.Store, publisher EventPublisher) *BookingService {
	return &BookingService{
		store:     store,
		publisher: publisher,
	}
}

// Store exposes the underlying ledger for read paths.
func (s *BookingService) Store() *ledger.Store {
	return s.store
}

func (s *BookingService) ListProfiles(ctx context.Context) []string {
	return s.store.ListProfiles(ctx)
}

func (s *BookingService) CreateProfile(ctx context.Context, name string) error {
	return s.store.CreateProfile(ctx, name)
}

func (s *BookingService) RenameProfile(ctx context.Context, oldName, newName string) error {
	if err := s.store.RenameProfile(ctx, oldName, newName); err != nil {
		return err
	}
	newName = strings.TrimSpace(newName)
	if newName == oldName {
		return nil
	}
	// The worker rebuilds the worksheet under the new name.
	s.publishRemoveProfile(ctx, oldName)
	bookings, err := s.store.ListBookings(ctx, newName)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list bookings after rename",
			applog.FieldProfile, newName, applog.FieldError, err)
		return nil
	}
	for _, b := range bookings {
		s.publishUpsert(ctx, newName, b.ID)
	}
	return nil
}

func (s *BookingService) DeleteProfile(ctx context.Context, name string) error {
	if err := s.store.DeleteProfile(ctx, name); err != nil {
		return err
	}
	s.publishRemoveProfile(ctx, name)
	return nil
}

func (s *BookingService) ListBookings(ctx context.Context, profile string) ([]core.Booking, error) {
	return s.store.ListBookings(ctx, profile)
}

func (s *BookingService) GetBooking(ctx context.Context, profile, bookingID string) (core.Booking, error) {
	return s.store.GetBooking(ctx, profile, bookingID)
}

func (s *BookingService) CreateBooking(ctx context.Context, profile, reservationNumber string) (core.Booking, error) {
	booking, err := s.store.CreateBooking(ctx, profile, reservationNumber)
	if err != nil {
		return core.Booking{}, err
	}
	s.publishUpsert(ctx, profile, booking.ID)
	return booking, nil
}

func (s *BookingService) DeleteBooking(ctx context.Context, profile, bookingID string) error {
	if err := s.store.DeleteBooking(ctx, profile, bookingID); err != nil {
		return err
	}
	s.publishRemove(ctx, profile, bookingID)
	return nil
}

func (s *BookingService) DeleteBookings(ctx context.Context, profile string, bookingIDs []string) ([]string, error) {
	removed, err := s.store.DeleteBookings(ctx, profile, bookingIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range removed {
		s.publishRemove(ctx, profile, id)
	}
	return removed, nil
}

func (s *BookingService) DeleteAllBookings(ctx context.Context, profile string) ([]string, error) {
	removed, err := s.store.DeleteAllBookings(ctx, profile)
	if err != nil {
		return nil, err
	}
	for _, id := range removed {
		s.publishRemove(ctx, profile, id)
	}
	return removed, nil
}

func (s *BookingService) AddItem(ctx context.Context, profile, bookingID string, item core.Item) (core.Item, error) {
	added, err := s.store.AddItem(ctx, profile, bookingID, item)
	if err != nil {
		return core.Item{}, err
	}
	s.publishUpsert(ctx, profile, bookingID)
	return added, nil
}

func (s *BookingService) UpdateItem(ctx context.Context, profile, bookingID string, item core.Item) (core.Item, error) {
	updated, err := s.store.UpdateItem(ctx, profile, bookingID, item)
	if err != nil {
		return core.Item{}, err
	}
	s.publishUpsert(ctx, profile, bookingID)
	return updated, nil
}

func (s *BookingService) DeleteItem(ctx context.Context, profile, bookingID, itemID string) error {
	if err := s.store.DeleteItem(ctx, profile, bookingID, itemID); err != nil {
		return err
	}
	s.publishUpsert(ctx, profile, bookingID)
	return nil
}

func (s *BookingService) AddPayment(ctx context.Context, profile, bookingID string, payment core.Payment) (core.Payment, error) {
	added, err := s.store.AddPayment(ctx, profile, bookingID, payment)
	if err != nil {
		return core.Payment{}, err
	}
	s.publishUpsert(ctx, profile, bookingID)
	return added, nil
}

func (s *BookingService) publishUpsert(ctx context.Context, profile, bookingID string) {
	s.publish(ctx, amqp.NewBookingUpsertMessage(profile, bookingID))
}

func (s *BookingService) publishRemove(ctx context.Context, profile, bookingID string) {
	s.publish(ctx, amqp.NewBookingRemoveMessage(profile, bookingID))
}

func (s *BookingService) publishRemoveProfile(ctx context.Context, profile string) {
	s.publish(ctx, amqp.NewProfileRemoveMessage(profile))
}

func (s *BookingService) publish(ctx context.Context, msg *amqp.BookingEventMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBookingEvent(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish booking event",
			applog.FieldAction, msg.Action,
			applog.FieldProfile, msg.Profile,
			applog.FieldBookingID, msg.BookingID,
			applog.FieldError, err)
	}
}

// Close closes the publisher connection.
func (s *BookingService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
