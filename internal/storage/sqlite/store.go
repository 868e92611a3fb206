package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/sui-agent/internal/storage"
)

// Store is a SQLite ContactIndex.
type Store struct {
	db *sql.DB
}

var _ storage.ContactIndex = (*Store)(nil)

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS contact_refs (
			owner TEXT NOT NULL,
			contact_key TEXT NOT NULL,
			blob_id TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (owner, contact_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_contact_refs_owner ON contact_refs(owner)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) PutRef(ctx context.Context, ref storage.ContactRef) error {
	query := `INSERT INTO contact_refs (owner, contact_key, blob_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, contact_key) DO UPDATE SET blob_id = excluded.blob_id, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, ref.Owner, ref.Key, ref.BlobID, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put contact ref: %w", err)
	}
	return nil
}

func (s *Store) GetRef(ctx context.Context, owner, key string) (storage.ContactRef, error) {
	query := `SELECT owner, contact_key, blob_id, updated_at FROM contact_refs WHERE owner = ? AND contact_key = ?`

	var ref storage.ContactRef
	err := s.db.QueryRowContext(ctx, query, owner, key).Scan(&ref.Owner, &ref.Key, &ref.BlobID, &ref.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ContactRef{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ContactRef{}, fmt.Errorf("failed to get contact ref: %w", err)
	}
	return ref, nil
}

func (s *Store) ListRefs(ctx context.Context, owner string) ([]storage.ContactRef, error) {
	query := `SELECT owner, contact_key, blob_id, updated_at FROM contact_refs WHERE owner = ? ORDER BY contact_key`

	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact refs: %w", err)
	}
	defer rows.Close()

	var refs []storage.ContactRef
	for rows.Next() {
		var ref storage.ContactRef
		if err := rows.Scan(&ref.Owner, &ref.Key, &ref.BlobID, &ref.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (s *Store) DeleteRef(ctx context.Context, owner, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contact_refs WHERE owner = ? AND contact_key = ?`, owner, key)
	if err != nil {
		return fmt.Errorf("failed to delete contact ref: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete contact ref: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
