// Package ledger implements the profile/booking store: a mapping from
// freelancer profile name to an ordered booking list, persisted wholesale
// through a Snapshotter after every mutation.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reservas/internal/core"
	applog "reservas/internal/log"
)

var (
	ErrEmptyProfileName = errors.New("empty profile name")
	ErrProfileExists    = errors.New("profile already exists")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrItemNotFound     = errors.New("item not found")
)

// Store owns the in-memory state. A single mutex suffices: there is one
// logical writer, the mutex only covers net/http's request concurrency.
type Store struct {
	mu   sync.Mutex
	snap Snapshotter

	state map[string][]core.Booking

	// test seams
	now   func() time.Time
	newID func() string
}

// NewStore builds a store seeded from the snapshotter. A load failure is
// logged and the store starts empty: in-memory state is authoritative for
// the session and persistence errors are never surfaced as domain failures.
func NewStore(ctx context.Context, snap Snapshotter) *Store {
	s := &Store{
		snap:  snap,
		state: make(map[string][]core.Booking),
		now:   time.Now,
		newID: uuid.NewString,
	}
	if snap == nil {
		return s
	}
	loaded, err := snap.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Snapshot load failed, starting empty", applog.FieldError, err)
		return s
	}
	if loaded != nil {
		s.state = loaded
	}
	return s
}

// persist writes the full state through the snapshot port. Failures are
// logged and swallowed; the caller's mutation has already taken effect.
func (s *Store) persist(ctx context.Context) {
	if s.snap == nil {
		return
	}
	if err := s.snap.Save(ctx, cloneState(s.state)); err != nil {
		slog.ErrorContext(ctx, "Snapshot save failed", applog.FieldError, err)
	}
}

// ListProfiles returns all profile names sorted.
func (s *Store) ListProfiles(_ context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.state))
	for name := range s.state {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateProfile registers a new empty profile. The name is trimmed; empty
// names and case-sensitive duplicates are rejected.
func (s *Store) CreateProfile(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyProfileName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state[name]; ok {
		return ErrProfileExists
	}
	s.state[name] = []core.Booking{}
	s.persist(ctx)
	return nil
}

// RenameProfile migrates the booking list to the new key, preserving order.
// Renaming a profile to its current name is a no-op, not a duplicate.
func (s *Store) RenameProfile(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyProfileName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings, ok := s.state[oldName]
	if !ok {
		return ErrProfileNotFound
	}
	if oldName == newName {
		return nil
	}
	if _, exists := s.state[newName]; exists {
		return ErrProfileExists
	}
	s.state[newName] = bookings
	delete(s.state, oldName)
	s.persist(ctx)
	return nil
}

// DeleteProfile discards the profile and all its bookings irrecoverably.
func (s *Store) DeleteProfile(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state[name]; !ok {
		return ErrProfileNotFound
	}
	delete(s.state, name)
	s.persist(ctx)
	return nil
}

// ListBookings returns the profile's bookings in list order (newest first).
func (s *Store) ListBookings(_ context.Context, profile string) ([]core.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings, ok := s.state[profile]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return cloneBookings(bookings), nil
}

// GetBooking returns a single booking by id.
func (s *Store) GetBooking(_ context.Context, profile, bookingID string) (core.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBooking(profile, bookingID)
	if err != nil {
		return core.Booking{}, err
	}
	return cloneBooking(*b), nil
}

// CreateBooking adds a booking with a fresh id and CreatedAt, prepended so
// the newest booking heads the list.
func (s *Store) CreateBooking(ctx context.Context, profile, reservationNumber string) (core.Booking, error) {
	b := core.Booking{
		ID:                s.newID(),
		ReservationNumber: strings.TrimSpace(reservationNumber),
		Items:             []core.Item{},
		Payments:          []core.Payment{},
		CreatedAt:         s.now(),
	}
	if err := b.Validate(); err != nil {
		return core.Booking{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings, ok := s.state[profile]
	if !ok {
		return core.Booking{}, ErrProfileNotFound
	}
	s.state[profile] = append([]core.Booking{b}, bookings...)
	s.persist(ctx)
	return cloneBooking(b), nil
}

// DeleteBooking removes one booking by id.
func (s *Store) DeleteBooking(ctx context.Context, profile, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings, ok := s.state[profile]
	if !ok {
		return ErrProfileNotFound
	}
	for i, b := range bookings {
		if b.ID == bookingID {
			s.state[profile] = append(bookings[:i:i], bookings[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return ErrBookingNotFound
}

// DeleteBookings removes the given set of bookings. Unknown ids are ignored
// (set-filter semantics). Returns the ids actually removed.
func (s *Store) DeleteBookings(ctx context.Context, profile string, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings, ok := s.state[profile]
	if !ok {
		return nil, ErrProfileNotFound
	}
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	var kept []core.Booking
	var removed []string
	for _, b := range bookings {
		if selected[b.ID] {
			removed = append(removed, b.ID)
			continue
		}
		kept = append(kept, b)
	}
	if len(removed) == 0 {
		return nil, nil
	}
	if kept == nil {
		kept = []core.Booking{}
	}
	s.state[profile] = kept
	s.persist(ctx)
	return removed, nil
}

// DeleteAllBookings clears the profile's booking list.
func (s *Store) DeleteAllBookings(ctx context.Context, profile string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bookings, ok := s.state[profile]
	if !ok {
		return nil, ErrProfileNotFound
	}
	removed := make([]string, 0, len(bookings))
	for _, b := range bookings {
		removed = append(removed, b.ID)
	}
	s.state[profile] = []core.Booking{}
	s.persist(ctx)
	return removed, nil
}

// AddItem appends a billable line to the booking. The id is assigned here.
func (s *Store) AddItem(ctx context.Context, profile, bookingID string, it core.Item) (core.Item, error) {
	it.ID = s.newID()
	it.Name = strings.TrimSpace(it.Name)
	if err := it.Validate(); err != nil {
		return core.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBooking(profile, bookingID)
	if err != nil {
		return core.Item{}, err
	}
	b.Items = append(b.Items, it)
	s.persist(ctx)
	return it, nil
}

// UpdateItem replaces all fields of the item matched by id; the id itself
// is immutable.
func (s *Store) UpdateItem(ctx context.Context, profile, bookingID string, it core.Item) (core.Item, error) {
	it.Name = strings.TrimSpace(it.Name)
	if err := it.Validate(); err != nil {
		return core.Item{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBooking(profile, bookingID)
	if err != nil {
		return core.Item{}, err
	}
	for i := range b.Items {
		if b.Items[i].ID == it.ID {
			b.Items[i] = it
			s.persist(ctx)
			return it, nil
		}
	}
	return core.Item{}, ErrItemNotFound
}

// DeleteItem removes one item by id.
func (s *Store) DeleteItem(ctx context.Context, profile, bookingID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBooking(profile, bookingID)
	if err != nil {
		return err
	}
	for i := range b.Items {
		if b.Items[i].ID == itemID {
			b.Items = append(b.Items[:i:i], b.Items[i+1:]...)
			s.persist(ctx)
			return nil
		}
	}
	return ErrItemNotFound
}

// AddPayment appends a payment, stamping Date with the current time.
// Payments are never edited or deleted afterwards.
func (s *Store) AddPayment(ctx context.Context, profile, bookingID string, p core.Payment) (core.Payment, error) {
	p.ID = s.newID()
	p.Date = s.now()
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.findBooking(profile, bookingID)
	if err != nil {
		return core.Payment{}, err
	}
	b.Payments = append(b.Payments, p)
	s.persist(ctx)
	return p, nil
}

// State returns a deep copy of the whole mapping (used by the mirror
// worker's backfill and by tests).
func (s *Store) State(_ context.Context) map[string][]core.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneState(s.state)
}

// findBooking must be called with the mutex held.
func (s *Store) findBooking(profile, bookingID string) (*core.Booking, error) {
	bookings, ok := s.state[profile]
	if !ok {
		return nil, ErrProfileNotFound
	}
	for i := range bookings {
		if bookings[i].ID == bookingID {
			return &bookings[i], nil
		}
	}
	return nil, ErrBookingNotFound
}

func cloneBooking(b core.Booking) core.Booking {
	b.Items = append([]core.Item(nil), b.Items...)
	b.Payments = append([]core.Payment(nil), b.Payments...)
	return b
}

func cloneBookings(bs []core.Booking) []core.Booking {
	out := make([]core.Booking, len(bs))
	for i, b := range bs {
		out[i] = cloneBooking(b)
	}
	return out
}

func cloneState(state map[string][]core.Booking) map[string][]core.Booking {
	out := make(map[string][]core.Booking, len(state))
	for name, bs := range state {
		out[name] = cloneBookings(bs)
	}
	return out
}
