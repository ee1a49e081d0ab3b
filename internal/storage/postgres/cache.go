// Package postgres provides the remote cache tier on Postgres (Supabase in
// production) through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"afasrapport/internal/cache"
)

const schema = `
CREATE TABLE IF NOT EXISTS report_cache (
    key        TEXT PRIMARY KEY,
    value      BYTEA       NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_report_cache_expires ON report_cache (expires_at);
`

// querier is the subset of *pgxpool.Pool the cache uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Cache struct {
	pool *pgxpool.Pool
	db   querier
	now  func() time.Time
}

var (
	_ cache.Backend = (*Cache)(nil)
	_ cache.Cleaner = (*Cache)(nil)
)

// Open connects to dsn and makes sure the cache table exists.
func Open(ctx context.Context, dsn string) (*Cache, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure cache schema: %w", err)
	}
	return &Cache{pool: pool, db: pool, now: time.Now}, nil
}

func (c *Cache) Close() error {
	if c.pool != nil {
		c.pool.Close()
	}
	return nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.QueryRow(ctx,
		`SELECT value FROM report_cache WHERE key = $1 AND expires_at > $2`,
		key, c.now()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return value, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.db.Exec(ctx, `
		INSERT INTO report_cache (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, value, c.now().Add(ttl))
	if err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.Exec(ctx, `DELETE FROM report_cache WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	_, err := c.db.Exec(ctx, `DELETE FROM report_cache WHERE left(key, length($1)) = $1`, prefix)
	if err != nil {
		return fmt.Errorf("delete cache prefix: %w", err)
	}
	return nil
}

func (c *Cache) CleanExpired(ctx context.Context) (int, error) {
	tag, err := c.db.Exec(ctx, `DELETE FROM report_cache WHERE expires_at <= $1`, c.now())
	if err != nil {
		return 0, fmt.Errorf("clean cache entries: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
