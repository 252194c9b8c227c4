package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	mem "fintrack/internal/sheets/memory"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	logger.Info("Starting fintrack-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP URL is required for the worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	// The server owns reloads; the worker only reads.
	backendCfg.Watch = false

	startCtx := context.Background()
	result, err := backend.NewFactory(logger).CreateStore(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store", applog.FieldError, err, "backend", cfg.Backend)
		os.Exit(1)
	}
	defer result.Store.Close()

	exporter, err := newExporter(startCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	exportWorker := worker.NewExportWorker(result.Store, exporter, logger)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	logger.Info("Performing startup resync")
	if err := exportWorker.Resync(ctx); err != nil {
		logger.Error("Startup resync failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			err := client.ConsumeEvents(gctx, exportWorker.HandleEvent)
			if gctx.Err() != nil {
				return nil
			}
			logger.Warn("Event consumption stopped, reconnecting", applog.FieldError, err)
			if err := client.Reconnect(gctx); err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

// newExporter picks Google Sheets when a spreadsheet is configured and an
// in-memory exporter otherwise.
func newExporter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.TransactionExporter, error) {
	if !cfg.ExportEnabled() {
		logger.Info("Google Sheets export disabled, keeping rows in memory")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}
