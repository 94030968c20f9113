package db

import (
	"path/filepath"
	"testing"
)

// NewTestDB opens a migrated registry database in a temp directory. The
// connection is closed when the test finishes.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "panels_test.db")
	database, err := NewDB(path)
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// newTestPanel builds a panel with sensible defaults for tests.
func newTestPanel(name string) *Panel {
	return &Panel{
		Name:        name,
		Model:       "tft-800",
		Width:       800,
		Height:      480,
		LayoutType:  "grid",
		Rows:        2,
		Columns:     2,
		ShowPreview: true,
	}
}
