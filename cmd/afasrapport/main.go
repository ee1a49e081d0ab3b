package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"afasrapport/internal/assistant"
	"afasrapport/internal/cli"
	apphttp "afasrapport/internal/http"
	"afasrapport/internal/log"
	"afasrapport/internal/sheets"
	gsheet "afasrapport/internal/sheets/google"
	mem "afasrapport/internal/sheets/memory"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := cli.NewApp(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		os.Exit(1)
	}

	deps := apphttp.Deps{
		Reports: app.Reports,
		Refresh: app.Refresh,
		Checks:  app.Backend.Checks,
		Logger:  logger,
	}

	if cfg.GeminiAPIKey != "" {
		gen, err := assistant.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", log.FieldError, err)
		} else {
			deps.Assistant = assistant.New(gen, app.Backend.Store, logger)
			logger.Info("Assistant enabled", log.FieldModel, gen.Model())
		}
	} else {
		logger.Info("Assistant disabled - no GEMINI_API_KEY provided")
	}

	var exporter sheets.ViewExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.NewClient(context.Background(), gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = mem.New(cfg.GoogleSheetName)
		logger.Info("Google Sheets disabled - exports are kept in memory")
	}
	deps.Sheets = exporter

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		_ = app.Close()
	})

	logger.Info("Starting afasrapport server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"afas", cfg.AFASEnabled(),
		"amqp", app.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
