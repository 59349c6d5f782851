package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"kashela/internal/amqp"
	"kashela/internal/cli"
	"kashela/internal/config"
	klog "kashela/internal/log"
	gsheet "kashela/internal/sheets/google"
	"kashela/internal/storage"
	"kashela/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, klog.ComponentWorker)
	cli.MustValidate(logger, cfg.Validate, cfg.ValidateWorker)

	logger.Info("Starting kashela-worker")

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker exited with error", klog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *klog.Logger) error {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	defer repo.Close()

	sheets, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return fmt.Errorf("google sheets: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	broker, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("amqp: %w", err)
	}
	defer broker.Close()

	syncWorker := worker.NewSyncWorker(repo, repo, sheets, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// The periodic sweep retries; keep consuming.
		logger.Error("Failed startup sync check", klog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := broker.ConsumeTransactionCreated(gctx, syncWorker.HandleTransactionCreated)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("message consumption: %w", err)
	})
	g.Go(func() error {
		logger.Info("Periodic sync started", "interval", cfg.SyncInterval, "batch_size", cfg.SyncBatchSize)
		return syncWorker.Run(gctx, cfg.SyncInterval)
	})
	return g.Wait()
}
