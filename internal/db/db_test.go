package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/a.db", "file:/tmp/a.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{":memory:", ":memory:?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{"file:x?mode=memory", "file:x?mode=memory&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
	}
	for _, tt := range tests {
		if got := DSN(tt.path); got != tt.want {
			t.Errorf("DSN(%q): expected %q, got %q", tt.path, tt.want, got)
		}
	}
}

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "library.db")
	conn, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer conn.Close()

	if err := Migrate(conn); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	// Running twice is a no-op.
	if err := Migrate(conn); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	var tables []string
	if err := conn.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`); err != nil {
		t.Fatalf("list tables: %v", err)
	}
	joined := strings.Join(tables, ",")
	for _, want := range []string{"documents", "document_versions"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected table %s, got %v", want, tables)
		}
	}

	var mode string
	if err := conn.Get(&mode, `PRAGMA journal_mode`); err != nil {
		t.Fatalf("journal mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("expected wal journal mode, got %q", mode)
	}
}
