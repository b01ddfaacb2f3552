// Package store persists prompt documents in SQLite, keeping a version row for every
// change of content.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/matheus-szfig/LLMPromptBuilder/pkg/prompt"
)

var (
	// ErrNotFound is returned when no document is stored under a key.
	ErrNotFound = errors.New("document not found")

	// ErrInvalidKey is returned when a key does not match validKeyPattern.
	ErrInvalidKey = errors.New("document key must match ^[a-zA-Z][a-zA-Z0-9._-]*$")
)

// validKeyPattern matches document keys (alphanumeric with dots, underscores, dashes).
var validKeyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9._-]*$`)

// Document is a row in the documents table. Body holds the JSON interchange form.
type Document struct {
	ID          string    `db:"id" json:"id" yaml:"id"`
	Key         string    `db:"key" json:"key" yaml:"key"`
	Description string    `db:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Body        string    `db:"body" json:"body" yaml:"body"`
	Hash        string    `db:"hash" json:"hash" yaml:"hash"`
	CreatedAt   time.Time `db:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at" yaml:"updated_at"`
}

// Version is a row in the document_versions table.
type Version struct {
	ID          string    `db:"id" json:"id" yaml:"id"`
	DocumentKey string    `db:"document_key" json:"document_key" yaml:"document_key"`
	Body        string    `db:"body" json:"body" yaml:"body"`
	Hash        string    `db:"hash" json:"hash" yaml:"hash"`
	Note        string    `db:"note" json:"note,omitempty" yaml:"note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at" yaml:"created_at"`
}

// SaveOptions carries the optional fields of a save. An empty Description keeps the
// stored one.
type SaveOptions struct {
	Description string
	Note        string
}

// DocumentStore is the sqlx-backed document store.
type DocumentStore struct {
	db       *sqlx.DB
	logger   *slog.Logger
	attempts uint
	delay    time.Duration
}

// NewDocumentStore creates a store over an already migrated database.
func NewDocumentStore(db *sqlx.DB, logger *slog.Logger) *DocumentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentStore{db: db, logger: logger, attempts: 5, delay: 50 * time.Millisecond}
}

// ValidateKey checks that key is usable as a document key.
func ValidateKey(key string) error {
	if !validKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// HashBody returns the SHA256 hex digest of body.
func HashBody(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Save stores the builder's pretty JSON form under key.
func (s *DocumentStore) Save(ctx context.Context, key string, b *prompt.Builder, opts SaveOptions) (*Document, error) {
	body, err := b.ToJSON(true)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", key, err)
	}
	return s.SaveBody(ctx, key, body, opts)
}

// SaveBody upserts body under key. A version row is appended only when the content
// hash changes. Writes that hit a locked database are retried.
func (s *DocumentStore) SaveBody(ctx context.Context, key, body string, opts SaveOptions) (*Document, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	hash := HashBody(body)

	var changed bool
	err := retry.Do(
		func() error {
			var err error
			changed, err = s.save(ctx, key, body, hash, opts)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("database busy, retrying save", "key", key, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("save document %s: %w", key, err)
	}

	if changed {
		s.logger.Debug("document saved", "key", key, "hash", hash[:12])
	}
	return s.Get(ctx, key)
}

func (s *DocumentStore) save(ctx context.Context, key, body, hash string, opts SaveOptions) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var current Document
	err = tx.GetContext(ctx, &current, `SELECT * FROM documents WHERE key = ?`, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO documents (id, key, description, body, hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), key, opts.Description, body, hash, now, now)
		if err != nil {
			return false, err
		}
	case err != nil:
		return false, err
	case current.Hash == hash:
		if opts.Description == "" || opts.Description == current.Description {
			return false, nil
		}
		_, err = tx.ExecContext(ctx, `UPDATE documents SET description = ?, updated_at = ? WHERE key = ?`,
			opts.Description, now, key)
		if err != nil {
			return false, err
		}
		return false, tx.Commit()
	default:
		description := opts.Description
		if description == "" {
			description = current.Description
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET description = ?, body = ?, hash = ?, updated_at = ? WHERE key = ?
		`, description, body, hash, now, key)
		if err != nil {
			return false, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO document_versions (id, document_key, body, hash, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.New().String(), key, body, hash, opts.Note, now)
	if err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// Get returns the document stored under key, or ErrNotFound.
func (s *DocumentStore) Get(ctx context.Context, key string) (*Document, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var d Document
	err := s.db.GetContext(ctx, &d, `SELECT * FROM documents WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Load decodes the document stored under key into a builder.
func (s *DocumentStore) Load(ctx context.Context, key string, opts ...prompt.Option) (*prompt.Builder, error) {
	d, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	b, err := prompt.FromJSON(d.Body, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", key, err)
	}
	return b, nil
}

// List returns all documents ordered by key.
func (s *DocumentStore) List(ctx context.Context) ([]*Document, error) {
	var docs []*Document
	if err := s.db.SelectContext(ctx, &docs, `SELECT * FROM documents ORDER BY key ASC`); err != nil {
		return nil, err
	}
	return docs, nil
}

// Delete removes a document and its versions.
func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_versions WHERE document_key = ?`, key); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE key = ?`, key)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("document deleted", "key", key)
	return nil
}

// Versions returns the version history of key, oldest first.
func (s *DocumentStore) Versions(ctx context.Context, key string) ([]*Version, error) {
	if _, err := s.Get(ctx, key); err != nil {
		return nil, err
	}
	var versions []*Version
	err := s.db.SelectContext(ctx, &versions, `
		SELECT * FROM document_versions WHERE document_key = ? ORDER BY created_at ASC, rowid ASC
	`, key)
	if err != nil {
		return nil, err
	}
	return versions, nil
}

// isBusy reports whether err is SQLite's "database is locked" family of errors.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}
