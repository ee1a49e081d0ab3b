// Package cache stores serialized report inputs behind a small Backend
// interface so the in-process LRU, SQLite and Postgres stores can be
// stacked into tiers.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"afasrapport/internal/log"
)

// ErrMiss is returned by Backend.Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend is a byte-oriented cache store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cleaner is implemented by backends that need expired entries purged.
type Cleaner interface {
	CleanExpired(ctx context.Context) (int, error)
}

// Manager periodically purges expired entries from registered backends.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopped     bool
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup. Backends that do not
// implement Cleaner are ignored.
func (m *Manager) Register(b any) {
	c, ok := b.(Cleaner)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

// CleanNow runs one cleanup pass and returns the number of entries removed.
func (m *Manager) CleanNow(ctx context.Context) int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		n, err := c.CleanExpired(ctx)
		if err != nil {
			m.logger.WarnContext(ctx, "Cache cleanup failed", log.FieldError, err)
			continue
		}
		total += n
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			if n := m.CleanNow(ctx); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
			cancel()
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup loop. A stopped Manager cannot be restarted.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()
	close(m.stopCleanup)
	<-m.cleanupDone
}
