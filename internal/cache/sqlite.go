// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/adlibrary/pkg/types"
)

// SQLite persists reconciled lists across process restarts so a CLI run
// can reuse the list computed by the previous one.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the cache database at path, creating the
// parent directory and schema if needed.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// WithClock replaces the time source. Intended for tests.
func (s *SQLite) WithClock(now func() time.Time) *SQLite {
	s.now = now
	return s
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS reconciled_lists (
		user_id TEXT PRIMARY KEY,
		records TEXT NOT NULL,
		stored_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	return err
}

func (s *SQLite) Get(ctx context.Context, userID string) (Entry, bool, error) {
	e, ok, err := s.GetStale(ctx, userID)
	if err != nil || !ok || !e.Fresh(s.now()) {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *SQLite) GetStale(ctx context.Context, userID string) (Entry, bool, error) {
	var (
		recordsJSON         string
		storedAt, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT records, stored_at, expires_at FROM reconciled_lists WHERE user_id = ?`, userID,
	).Scan(&recordsJSON, &storedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading cache entry: %w", err)
	}

	var records []types.CanonicalRecord
	if err := json.Unmarshal([]byte(recordsJSON), &records); err != nil {
		return Entry{}, false, fmt.Errorf("decoding cache entry: %w", err)
	}
	return Entry{
		Records:   records,
		StoredAt:  time.Unix(0, storedAt).UTC(),
		ExpiresAt: time.Unix(0, expiresAt).UTC(),
	}, true, nil
}

func (s *SQLite) Set(ctx context.Context, userID string, records []types.CanonicalRecord, ttl time.Duration) error {
	if records == nil {
		records = []types.CanonicalRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	now := s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reconciled_lists (user_id, records, stored_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			records=excluded.records, stored_at=excluded.stored_at, expires_at=excluded.expires_at`,
		userID, string(data), now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (s *SQLite) Invalidate(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reconciled_lists WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}
