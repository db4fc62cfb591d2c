package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"mico/internal/amqp"
	"mico/internal/cli"
	gsheet "mico/internal/export/google"
	"mico/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting mico-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Google Sheets is optional: without it the worker idles instead of
	// exporting, same as with the AMQP broker below.
	var sheetsClient *gsheet.Client
	if cfg.GoogleSpreadsheetID != "" {
		var err error
		sheetsClient, err = gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		if err := sheetsClient.EnsureSheet(context.Background()); err != nil {
			logger.Error("Failed to prepare export sheet", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("AMQP disabled - running the periodic sweep only")
	}

	var exportWorker *worker.ExportWorker
	if sheetsClient != nil {
		exportWorker = worker.NewExportWorker(repo, sheetsClient, cfg.SyncBatchSize)
	} else {
		logger.Info("Skipping export operations - no Sheets client available")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if exportWorker != nil {
		// Drain whatever accumulated while the worker was down.
		if err := exportWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Failed startup sync check", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if exportWorker != nil && amqpClient != nil {
		g.Go(func() error {
			return amqpClient.ConsumeTransactionSync(gctx, func(msg *amqp.TransactionSyncMessage) error {
				return exportWorker.HandleSyncMessage(gctx, msg)
			})
		})
	}

	if exportWorker != nil {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := exportWorker.ProcessPending(gctx); err != nil {
						logger.Error("Periodic sync failed", "error", err)
					}
				}
			}
		})
	} else {
		// Nothing to do without an export target; idle until shutdown.
		g.Go(func() error {
			<-gctx.Done()
			return gctx.Err()
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
