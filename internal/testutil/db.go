// Package testutil holds shared test helpers.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/matheus-szfig/LLMPromptBuilder/internal/db"
)

// NewTestDB opens a migrated in-memory SQLite database private to the test.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// A shared cache lets every pool connection see the same in-memory database; the
	// test name keeps tests apart.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := sqlx.Open("sqlite", "file:"+name+"?mode=memory&cache=shared&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

// NewLogger returns a debug-level text logger writing into the returned buffer.
func NewLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}
