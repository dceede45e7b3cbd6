package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresCache keeps cache entries in a single table with an absolute
// expiry. Expired rows are invisible to Get and removed by Purge.
type PostgresCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresCache opens a connection to PostgreSQL, waits for it to accept
// connections, runs the schema migration and returns a ready cache.
func NewPostgresCache(ctx context.Context, dsn string) (*PostgresCache, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return NewPostgresCacheFromDB(ctx, db)
}

// NewPostgresCacheFromDB migrates and wraps an existing pool.
func NewPostgresCacheFromDB(ctx context.Context, db *sql.DB) (*PostgresCache, error) {
	pc := &PostgresCache{db: db, now: time.Now}
	if err := pc.migrate(ctx); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pc, nil
}

func (pc *PostgresCache) migrate(ctx context.Context) error {
	_, err := pc.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT        PRIMARY KEY,
			value      TEXT        NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
	`)
	return err
}

func (pc *PostgresCache) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := pc.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = $1 AND expires_at > $2`,
		key, pc.now().UTC(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres: get %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the entry; the last writer for a key wins.
func (pc *PostgresCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := pc.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = NOW()
	`, key, value, pc.now().Add(ttl).UTC())
	if err != nil {
		return fmt.Errorf("postgres: set %q: %w", key, err)
	}
	return nil
}

// Purge deletes expired entries and reports how many were removed.
func (pc *PostgresCache) Purge(ctx context.Context) (int64, error) {
	res, err := pc.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= $1`, pc.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("postgres: purge: %w", err)
	}
	return res.RowsAffected()
}

func (pc *PostgresCache) Close() error {
	return pc.db.Close()
}
