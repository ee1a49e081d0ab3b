package backend

import (
	"context"
	"errors"
	"fmt"

	"afasrapport/internal/cache"
	"afasrapport/internal/log"
	"afasrapport/internal/storage"
	"afasrapport/internal/storage/memory"
	"afasrapport/internal/storage/postgres"
)

var (
	_ Store  = (*storage.SQLiteRepository)(nil)
	_ Store  = (*memory.Store)(nil)
	_ Pinger = (*storage.SQLiteRepository)(nil)
	_ Pinger = (*postgres.Cache)(nil)
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the record store and stacks the cache tiers: Postgres
// when configured as the remote tier, then the local store's cache.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result  = &BackendResult{Checks: map[string]Pinger{}}
		local   cache.Backend
		closers []func() error
	)

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		result.Store = repo
		result.Checks["sqlite"] = repo
		local = repo.Cache()
		closers = append(closers, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	case MemoryBackend:
		store, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
		}
		result.Store = store
		local = cache.NewMemory(config.CacheMaxEntries, config.CacheTTL)
		f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var remote cache.Backend
	if config.PostgresURL != "" {
		pg, err := postgres.Open(ctx, config.PostgresURL)
		if err != nil {
			// Remote tier is optional.
			f.logger.Warn("Postgres cache unavailable, continuing with local cache only", log.FieldError, err)
		} else {
			remote = pg
			result.Checks["postgres"] = pg
			closers = append(closers, pg.Close)
			f.logger.Info("Initialized Postgres cache tier")
		}
	}

	result.Cache = cache.NewTiered(remote, local, f.logger)
	result.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return result, nil
}
