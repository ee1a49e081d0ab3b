package backend

import (
	"fmt"
	"time"

	"afasrapport/internal/config"
)

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (t BackendType) IsValid() bool {
	return t == MemoryBackend || t == SQLiteBackend
}

func (t BackendType) String() string { return string(t) }

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	SeedFile     string

	PostgresURL     string
	CacheTTL        time.Duration
	CacheMaxEntries int
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:            backendType,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		SeedFile:        appConfig.SeedFile,
		PostgresURL:     appConfig.PostgresURL,
		CacheTTL:        appConfig.CacheTTL,
		CacheMaxEntries: appConfig.CacheMaxEntries,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache size must be at least 1")
	}
	return nil
}
