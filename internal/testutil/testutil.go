// Package testutil provides shared test helpers for setting up state stores and engines.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starkad/ordna/internal/engine"
	"github.com/starkad/ordna/internal/files"
	"github.com/starkad/ordna/internal/schedule"
	"github.com/starkad/ordna/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "ordna-test-*.db")
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

// TestFiles creates a temporary uploads directory with a files.Store.
func TestFiles(t *testing.T) (string, *files.Store) {
	t.Helper()
	dir := t.TempDir()
	fs, err := files.NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// TestEngine builds an engine on temporary state with a manual scheduler so
// tests can drive timers deterministically.
func TestEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *schedule.Manual) {
	t.Helper()
	db := TestDB(t)
	_, fs := TestFiles(t)
	sched := schedule.NewManual(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))

	eng, err := engine.New(db, fs, sched, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng, sched
}

// WriteFile writes content to a file under dir and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
