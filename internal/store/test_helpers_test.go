package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/scribe/internal/model"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertPresetRow writes a preset row directly inside a transaction.
func insertPresetRow(t *testing.T, s *Store, id string, isDefault bool) {
	t.Helper()
	flag := 0
	if isDefault {
		flag = 1
	}
	err := s.RunTransaction(context.Background(), func(tx *Tx) error {
		_, err := tx.Exec(context.Background(), model.TablePresets, `
			INSERT OR REPLACE INTO writing_presets
			(id, name, description, systemPrompt, isDefault, createdAt, updatedAt)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, "name-"+id, "desc", "prompt", flag, 1, 1)
		return err
	})
	if err != nil {
		t.Fatalf("insert preset %s: %v", id, err)
	}
}

// countRows returns the row count of table.
func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
