// Package testutil provides shared test helpers for setting up stores.
package testutil

import (
	"os"
	"testing"

	"github.com/halvard/ansuz/internal/store"
	"github.com/halvard/ansuz/internal/uploads"
)

// TestDB creates a temporary SQLite page store that is automatically
// cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ansuz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestUploads creates a temporary uploads store.
func TestUploads(t *testing.T) (string, *uploads.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := uploads.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, s
}
