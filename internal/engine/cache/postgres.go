package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PostgresStore)(nil)

const pgSchema = `
CREATE TABLE IF NOT EXISTS search_cache (
	cache_key TEXT PRIMARY KEY,
	keyword TEXT NOT NULL,
	location TEXT NOT NULL,
	places JSONB NOT NULL,
	results_count INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	hit_count BIGINT NOT NULL DEFAULT 0,
	last_access_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
`

// PostgresStore keeps entries in a shared Postgres table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Entry, error) {
	var (
		e      Entry
		places []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT cache_key, keyword, location, places, results_count,
		       created_at, hit_count, last_access_at, expires_at
		FROM search_cache WHERE cache_key = $1`, key).
		Scan(&e.Key, &e.Keyword, &e.Location, &places, &e.ResultsCount,
			&e.CreatedAt, &e.HitCount, &e.LastAccessAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading entry: %w", err)
	}
	if err := json.Unmarshal(places, &e.Places); err != nil {
		return nil, fmt.Errorf("decoding places: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) Put(ctx context.Context, e *Entry) error {
	places, err := json.Marshal(e.Places)
	if err != nil {
		return fmt.Errorf("encoding places: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO search_cache (
			cache_key, keyword, location, places, results_count,
			created_at, hit_count, last_access_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (cache_key) DO UPDATE SET
			keyword = EXCLUDED.keyword,
			location = EXCLUDED.location,
			places = EXCLUDED.places,
			results_count = EXCLUDED.results_count,
			created_at = EXCLUDED.created_at,
			hit_count = EXCLUDED.hit_count,
			last_access_at = EXCLUDED.last_access_at,
			expires_at = EXCLUDED.expires_at`,
		e.Key, e.Keyword, e.Location, places, e.ResultsCount,
		e.CreatedAt, e.HitCount, e.LastAccessAt, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("writing entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Touch(ctx context.Context, key string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE search_cache SET hit_count = hit_count + 1, last_access_at = $1 WHERE cache_key = $2`,
		at, key)
	if err != nil {
		return fmt.Errorf("touching entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Expire(ctx context.Context, key string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE search_cache SET expires_at = $1 WHERE cache_key = $2`, epoch, key)
	if err != nil {
		return fmt.Errorf("expiring entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
