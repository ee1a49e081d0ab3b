package cache

import (
	"context"
	"time"
)

// Memory is an in-process Backend on top of LRUCache.
type Memory struct {
	lru *LRUCache[[]byte]
}

var (
	_ Backend = (*Memory)(nil)
	_ Cleaner = (*Memory)(nil)
)

func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	return &Memory{lru: NewLRUCache[[]byte](maxEntries, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lru.SetWithTTL(key, value, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Delete(key)
	return nil
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.lru.DeletePrefix(prefix)
	return nil
}

func (m *Memory) CleanExpired(context.Context) (int, error) {
	return m.lru.CleanExpired(), nil
}

func (m *Memory) Len() int { return m.lru.Size() }
