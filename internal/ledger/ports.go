package ledger

import (
	"context"

	"reservas/internal/core"
)

// Snapshotter persists the full profile→bookings mapping. Every mutation
// writes the whole state; there is no partial-write form. Implementations
// must make Save atomic from a reader's point of view.
type Snapshotter interface {
	Load(ctx context.Context) (map[string][]core.Booking, error)
	Save(ctx context.Context, state map[string][]core.Booking) error
}
