package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"afasrapport/internal/afas"
	"afasrapport/internal/amqp"
	"afasrapport/internal/backend"
	"afasrapport/internal/cache"
	"afasrapport/internal/config"
	"afasrapport/internal/log"
	"afasrapport/internal/services"
)

// App holds the services shared by the server and the refresh worker.
type App struct {
	Backend *backend.BackendResult
	Reports *services.ReportService
	Refresh *services.RefreshService
	// AMQP is nil when AMQP_URL is unset or the broker was unreachable.
	AMQP *amqp.Client

	cacheManager *cache.Manager
	logger       *log.Logger
}

// NewApp opens the backend, seeds category mappings and wires the report
// and refresh services. AFAS and AMQP are optional.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	app := &App{Backend: result, logger: logger}

	mappings, err := config.LoadCategoryMappings(cfg.CategoryMappingsFile)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	for _, m := range mappings {
		if err := result.Store.UpsertCategoryMapping(ctx, m); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("seed category mappings: %w", err)
		}
	}
	if len(mappings) > 0 {
		logger.Info("Seeded category mappings", "count", len(mappings), "file", cfg.CategoryMappingsFile)
	}

	app.cacheManager = cache.NewManager(logger)
	app.cacheManager.Register(result.Cache)
	app.cacheManager.StartCleanup(time.Minute)

	app.Reports = services.NewReportService(result.Store, result.Store, result.Cache, cfg.CacheTTL, logger)

	var fetcher services.Fetcher
	if cfg.AFASEnabled() {
		client, err := afas.NewClient(afas.Options{
			BaseURL:     cfg.AFASBaseURL,
			Token:       cfg.AFASToken,
			Connector:   cfg.AFASConnector,
			PageSize:    cfg.AFASPageSize,
			Concurrency: cfg.AFASConcurrency,
			Timeout:     cfg.AFASTimeout,
		}, logger)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("init AFAS client: %w", err)
		}
		fetcher = client
		logger.Info("AFAS connector configured", log.FieldConnector, cfg.AFASConnector)
	} else {
		logger.Info("AFAS disabled - no AFAS_BASE_URL/AFAS_TOKEN provided")
	}

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// Refreshes run inline without a broker.
			logger.Warn("AMQP unavailable, refreshes will run inline", log.FieldError, err)
		} else {
			app.AMQP = client
			publisher = client
		}
	}

	app.Refresh = services.NewRefreshService(fetcher, result.Store, app.Reports, publisher, logger)
	return app, nil
}

// Close stops cache cleanup and releases the broker and store.
func (a *App) Close() error {
	var errs []error
	if a.cacheManager != nil {
		a.cacheManager.Stop()
	}
	if a.AMQP != nil {
		errs = append(errs, a.AMQP.Close())
	}
	if a.Backend != nil && a.Backend.Cleanup != nil {
		errs = append(errs, a.Backend.Cleanup())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("Cleanup failed", log.FieldError, err)
		return err
	}
	return nil
}
