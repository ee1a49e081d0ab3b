package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"afasrapport/internal/cache"
)

// CacheBackend stores cache entries in the cache_entries table.
type CacheBackend struct {
	queries *Queries
	now     func() time.Time
}

var (
	_ cache.Backend = (*CacheBackend)(nil)
	_ cache.Cleaner = (*CacheBackend)(nil)
)

// Cache returns a cache backend sharing the repository's connection pool.
func (r *SQLiteRepository) Cache() *CacheBackend {
	return &CacheBackend{queries: r.queries, now: func() time.Time { return r.now() }}
}

func (c *CacheBackend) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := c.queries.GetCacheEntry(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	if entry.ExpiresAt <= c.now().Unix() {
		return nil, cache.ErrMiss
	}
	return entry.Value, nil
}

func (c *CacheBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.queries.UpsertCacheEntry(ctx, UpsertCacheEntryParams{
		Key:       key,
		Value:     value,
		ExpiresAt: c.now().Add(ttl).Unix(),
	}); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}

func (c *CacheBackend) Delete(ctx context.Context, key string) error {
	if err := c.queries.DeleteCacheEntry(ctx, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

func (c *CacheBackend) DeletePrefix(ctx context.Context, prefix string) error {
	if err := c.queries.DeleteCacheEntriesByPrefix(ctx, prefix); err != nil {
		return fmt.Errorf("delete cache prefix: %w", err)
	}
	return nil
}

func (c *CacheBackend) CleanExpired(ctx context.Context) (int, error) {
	n, err := c.queries.DeleteExpiredCacheEntries(ctx, c.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("clean cache entries: %w", err)
	}
	return int(n), nil
}
