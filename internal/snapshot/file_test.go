package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"reservas/internal/core"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "reservas.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	// Missing file loads as an empty ledger.
	state, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if len(state) != 0 {
		t.Fatalf("expected empty state, got %v", state)
	}

	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	want := map[string][]core.Booking{
		"Ana": {
			{
				ID:                "b1",
				ReservationNumber: "R-100",
				Items: []core.Item{
					{ID: "i1", Name: "Traslado", Value: core.Money{Cents: 100000}, Currency: core.ARS},
				},
				Payments: []core.Payment{
					{ID: "p1", Amount: core.Money{Cents: 40000}, Currency: core.ARS, Date: created},
				},
				CreatedAt: created,
			},
		},
		"Bea": {},
	}
	if err := fs.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestFileStoreLayout(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reservas.json")
	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	created := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	state := map[string][]core.Booking{
		"Ana": {
			{
				ID:                "b1",
				ReservationNumber: "R-100",
				Items:             []core.Item{{ID: "i1", Name: "Tour", Value: core.Money{Cents: 5000}, Currency: core.USD}},
				Payments:          []core.Payment{},
				CreatedAt:         created,
			},
		},
	}
	if err := fs.Save(ctx, state); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var doc map[string][]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("snapshot is not a profile→bookings document: %v", err)
	}
	b := doc["Ana"][0]
	for _, field := range []string{"id", "reservationNumber", "items", "payments", "createdAt"} {
		if _, ok := b[field]; !ok {
			t.Fatalf("booking missing field %q: %v", field, b)
		}
	}
	item := b["items"].([]any)[0].(map[string]any)
	if item["currency"] != "USD" {
		t.Fatalf("currency must serialize as ISO string, got %v", item["currency"])
	}
	if _, ok := item["value"].(float64); !ok {
		t.Fatalf("value must serialize as a number, got %T", item["value"])
	}
	if b["createdAt"] != "2025-03-10T12:00:00Z" {
		t.Fatalf("createdAt must be RFC 3339, got %v", b["createdAt"])
	}
}

func TestFileStoreOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reservas.json")
	fs, _ := NewFileStore(path)

	_ = fs.Save(ctx, map[string][]core.Booking{"Ana": {}})
	_ = fs.Save(ctx, map[string][]core.Booking{"Bea": {}})

	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := got["Ana"]; ok {
		t.Fatalf("save must replace the whole document")
	}
	if _, ok := got["Bea"]; !ok {
		t.Fatalf("latest state missing: %v", got)
	}
}
