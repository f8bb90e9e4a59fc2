// Package snapshot persists the ledger state as a single JSON document:
// a mapping from profile name to its booking list, with currencies as
// "ARS"/"USD" strings, timestamps in RFC 3339 and amounts as numbers.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"reservas/internal/core"
	"reservas/internal/ledger"
)

type FileStore struct {
	path string
}

var _ ledger.Snapshotter = (*FileStore)(nil)

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the full mapping. A missing file is an empty ledger, not an
// error.
func (f *FileStore) Load(_ context.Context) (map[string][]core.Booking, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]core.Booking{}, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	state := map[string][]core.Booking{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return state, nil
}

// Save writes the full mapping atomically: serialize to a temp file in the
// same directory, then rename over the target. Readers never observe a
// partial write.
func (f *FileStore) Save(_ context.Context, state map[string][]core.Booking) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".reservas-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
