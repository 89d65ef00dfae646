package testfixtures

import (
	"path/filepath"
	"testing"

	"github.com/example/campus-bookings/internal/persistence"
	"github.com/example/campus-bookings/internal/persistence/sqlite"
)

// SQLiteHarness provides a persistence.Store backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Store persistence.Store

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness on a temporary file. The schema
// is bootstrapped by Open; a cleanup callback is registered with the provided
// testing.TB so callers do not need to Close explicitly.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "bookings.db")

	store, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store: store,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
