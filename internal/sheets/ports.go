// Package sheets defines the outbound ports for the balance mirror: a
// spreadsheet-like destination keeping one worksheet per profile with a row
// per booking.
package sheets

import (
	"context"

	"reservas/internal/core"
)

// BalanceRow is the mirrored view of one booking.
type BalanceRow struct {
	BookingID         string
	ReservationNumber string
	Totals            core.Totals
}

// Mirror is implemented by destinations that can keep per-booking balance
// rows up to date. Implementations are best-effort; callers treat failures
// as retryable.
type Mirror interface {
	// UpsertRow inserts or updates the row for the booking in the
	// profile's worksheet, creating the worksheet if needed.
	UpsertRow(ctx context.Context, profile string, row BalanceRow) error

	// RemoveRow deletes the booking's row. Removing an absent row is not
	// an error.
	RemoveRow(ctx context.Context, profile, bookingID string) error

	// RemoveProfile deletes the profile's whole worksheet.
	RemoveProfile(ctx context.Context, profile string) error
}
