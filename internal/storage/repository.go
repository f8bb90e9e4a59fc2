// Package storage provides the SQLite snapshot adapter. The ledger is small
// (one freelancer's bookings), so Save rewrites the whole state in a single
// transaction — the all-or-nothing persistence the store contract requires.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reservas/internal/core"
	"reservas/internal/ledger"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Snapshotter = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Save replaces the entire persisted state inside one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, state map[string][]core.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"payments", "items", "bookings", "profiles"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for profile, bookings := range state {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO profiles (name) VALUES (?)", profile); err != nil {
			return fmt.Errorf("insert profile %q: %w", profile, err)
		}
		for pos, b := range bookings {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO bookings (id, profile_name, reservation_number, created_at, position)
				 VALUES (?, ?, ?, ?, ?)`,
				b.ID, profile, b.ReservationNumber, b.CreatedAt.UTC().Format(time.RFC3339Nano), pos); err != nil {
				return fmt.Errorf("insert booking %q: %w", b.ID, err)
			}
			for i, it := range b.Items {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO items (id, booking_id, name, value_cents, currency, position)
					 VALUES (?, ?, ?, ?, ?, ?)`,
					it.ID, b.ID, it.Name, it.Value.Cents, string(it.Currency), i); err != nil {
					return fmt.Errorf("insert item %q: %w", it.ID, err)
				}
			}
			for i, p := range b.Payments {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO payments (id, booking_id, amount_cents, currency, paid_at, position)
					 VALUES (?, ?, ?, ?, ?, ?)`,
					p.ID, b.ID, p.Amount.Cents, string(p.Currency), p.Date.UTC().Format(time.RFC3339Nano), i); err != nil {
					return fmt.Errorf("insert payment %q: %w", p.ID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load reconstructs the full mapping, restoring list order from positions.
func (r *SQLiteRepository) Load(ctx context.Context) (map[string][]core.Booking, error) {
	state := map[string][]core.Booking{}

	profileRows, err := r.db.QueryContext(ctx, "SELECT name FROM profiles")
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer profileRows.Close()
	for profileRows.Next() {
		var name string
		if err := profileRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		state[name] = []core.Booking{}
	}
	if err := profileRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	bookingRows, err := r.db.QueryContext(ctx,
		`SELECT id, profile_name, reservation_number, created_at
		 FROM bookings ORDER BY profile_name, position`)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer bookingRows.Close()

	index := map[string]*core.Booking{}
	var order []string
	owners := map[string]string{}
	for bookingRows.Next() {
		var b core.Booking
		var profile, createdAt string
		if err := bookingRows.Scan(&b.ID, &profile, &b.ReservationNumber, &createdAt); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse booking created_at: %w", err)
		}
		b.Items = []core.Item{}
		b.Payments = []core.Payment{}
		index[b.ID] = &b
		order = append(order, b.ID)
		owners[b.ID] = profile
	}
	if err := bookingRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	itemRows, err := r.db.QueryContext(ctx,
		`SELECT id, booking_id, name, value_cents, currency
		 FROM items ORDER BY booking_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it core.Item
		var bookingID, currency string
		if err := itemRows.Scan(&it.ID, &bookingID, &it.Name, &it.Value.Cents, &currency); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Currency = core.Currency(currency)
		if b, ok := index[bookingID]; ok {
			b.Items = append(b.Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	paymentRows, err := r.db.QueryContext(ctx,
		`SELECT id, booking_id, amount_cents, currency, paid_at
		 FROM payments ORDER BY booking_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer paymentRows.Close()
	for paymentRows.Next() {
		var p core.Payment
		var bookingID, currency, paidAt string
		if err := paymentRows.Scan(&p.ID, &bookingID, &p.Amount.Cents, &currency, &paidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Currency = core.Currency(currency)
		p.Date, err = time.Parse(time.RFC3339Nano, paidAt)
		if err != nil {
			return nil, fmt.Errorf("parse payment paid_at: %w", err)
		}
		if b, ok := index[bookingID]; ok {
			b.Payments = append(b.Payments, p)
		}
	}
	if err := paymentRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}

	for _, id := range order {
		profile := owners[id]
		state[profile] = append(state[profile], *index[id])
	}
	return state, nil
}
