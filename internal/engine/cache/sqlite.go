package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps entries in a local SQLite file. It is the default store
// for the CLI.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS search_cache (
		cache_key TEXT PRIMARY KEY,
		keyword TEXT NOT NULL,
		location TEXT NOT NULL,
		places TEXT NOT NULL,
		results_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		hit_count INTEGER NOT NULL DEFAULT 0,
		last_access_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_search_cache_expires ON search_cache(expires_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, error) {
	var (
		e                               Entry
		places                          string
		created, lastAccess, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT cache_key, keyword, location, places, results_count,
		       created_at, hit_count, last_access_at, expires_at
		FROM search_cache WHERE cache_key = ?`, key).
		Scan(&e.Key, &e.Keyword, &e.Location, &places, &e.ResultsCount,
			&created, &e.HitCount, &lastAccess, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading entry: %w", err)
	}
	if err := json.Unmarshal([]byte(places), &e.Places); err != nil {
		return nil, fmt.Errorf("decoding places: %w", err)
	}
	e.CreatedAt = time.UnixMilli(created).UTC()
	e.LastAccessAt = time.UnixMilli(lastAccess).UTC()
	e.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, e *Entry) error {
	places, err := json.Marshal(e.Places)
	if err != nil {
		return fmt.Errorf("encoding places: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO search_cache
		(cache_key, keyword, location, places, results_count,
		 created_at, hit_count, last_access_at, expires_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.Key, e.Keyword, e.Location, string(places), e.ResultsCount,
		e.CreatedAt.UnixMilli(), e.HitCount, e.LastAccessAt.UnixMilli(), e.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Touch(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE search_cache SET hit_count = hit_count + 1, last_access_at = ? WHERE cache_key = ?`,
		at.UnixMilli(), key)
	return err
}

func (s *SQLiteStore) Expire(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_cache SET expires_at = ? WHERE cache_key = ?`, epoch.UnixMilli(), key)
	if err != nil {
		return fmt.Errorf("expiring entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
