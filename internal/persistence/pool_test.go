package persistence

import (
	"path/filepath"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func TestOpen_ReturnsSharedPoolPerPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared.db")

	db1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	db2, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if db1 != db2 {
		t.Fatalf("expected Open to return the same *sql.DB for the same path")
	}

	if _, err := db1.Exec("CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("Exec: %v", err)
	}

	if err := CloseAll(); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
}
