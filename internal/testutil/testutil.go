// Package testutil provides shared test helpers for setting up local caches.
package testutil

import (
	"os"
	"testing"

	"github.com/solvane/lumen/internal/localstore"
)

// TestDB creates a temporary SQLite cache that is automatically cleaned up.
func TestDB(t *testing.T) *localstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "lumen-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := localstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
