package main

import (
	"context"
	"errors"
	"os"
	"time"

	"afasrapport/internal/cli"
	"afasrapport/internal/log"
	"afasrapport/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()
	logger = logger.WithComponent(log.ComponentWorker)

	logger.Info("Starting refresh-worker")

	if !cfg.AFASEnabled() {
		logger.Error("AFAS_BASE_URL and AFAS_TOKEN are required for the refresh worker")
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := cli.NewApp(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}

	var consumer worker.Consumer
	if app.AMQP != nil {
		consumer = app.AMQP
	}
	w := worker.NewRefreshWorker(app.Refresh, consumer, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	scheduler, err := w.Schedule(ctx, cfg.RefreshSchedule, cfg.Location())
	if err != nil {
		logger.Error("Failed to schedule refresh", log.FieldError, err)
		_ = app.Close()
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("Scheduled refresh", "schedule", cfg.RefreshSchedule, "timezone", cfg.Timezone)

	// Catch up once on startup so a fresh store is not empty until the first tick.
	if err := w.RefreshRecent(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Startup refresh failed", log.FieldError, err)
	}

	if err := w.Consume(ctx); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	<-scheduler.Stop().Done()
	_ = app.Close()
	logger.Info("Refresh worker stopped gracefully")
}
