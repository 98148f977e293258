package likes

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the likes table.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("likes: create data dir: %w", err)
		}
	}
	// Pragmas go in the DSN so every pooled connection gets them: WAL lets
	// readers proceed while a like is written, and writers wait on the busy
	// timeout instead of failing with SQLITE_BUSY.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("likes: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLite{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS likes (
    slug TEXT PRIMARY KEY,
    count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
`)
	if err != nil {
		return fmt.Errorf("likes: schema: %w", err)
	}
	return nil
}

func (s *SQLite) Count(ctx context.Context, slug string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count FROM likes WHERE slug = ?`, slug).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("likes: count %q: %w", slug, err)
	}
	return n, nil
}

func (s *SQLite) Add(ctx context.Context, slug string, delta int64) (int64, error) {
	if slug == "" {
		return 0, ErrEmptySlug
	}
	var n int64
	err := s.db.QueryRowContext(ctx, `
INSERT INTO likes (slug, count) VALUES (?, max(?, 0))
ON CONFLICT(slug) DO UPDATE SET
    count = max(likes.count + ?, 0),
    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
RETURNING count`, slug, delta, delta).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("likes: add %q: %w", slug, err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}
