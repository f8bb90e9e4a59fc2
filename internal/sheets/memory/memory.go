// Package memory is an in-memory Mirror used by tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"sync"

	"reservas/internal/sheets"
)

type Store struct {
	mu       sync.Mutex
	profiles map[string][]sheets.BalanceRow
}

var _ sheets.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{profiles: make(map[string][]sheets.BalanceRow)}
}

func (s *Store) UpsertRow(_ context.Context, profile string, row sheets.BalanceRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.profiles[profile]
	for i := range rows {
		if rows[i].BookingID == row.BookingID {
			rows[i] = row
			return nil
		}
	}
	s.profiles[profile] = append(rows, row)
	return nil
}

func (s *Store) RemoveRow(_ context.Context, profile, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.profiles[profile]
	for i := range rows {
		if rows[i].BookingID == bookingID {
			s.profiles[profile] = append(rows[:i:i], rows[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) RemoveProfile(_ context.Context, profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, profile)
	return nil
}

// Rows returns a copy of the profile's mirrored rows.
func (s *Store) Rows(profile string) []sheets.BalanceRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.BalanceRow(nil), s.profiles[profile]...)
}

// Profiles returns the names of mirrored profiles.
func (s *Store) Profiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	return names
}
