package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finadmin/internal/amqp"
	"finadmin/internal/config"
	"finadmin/internal/log"
	"finadmin/internal/sheets"
	gsheet "finadmin/internal/sheets/google"
	mem "finadmin/internal/sheets/memory"
	"finadmin/internal/storage"
	"finadmin/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting finadmin-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	store, err := storage.NewRecordStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize record store",
			log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Audit rows land in Google Sheets when configured, otherwise in an
	// in-process appender so the consumer keeps draining the queue.
	var appender sheets.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets audit sink initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		appender = mem.New()
		logger.Warn("Google Sheets disabled - audit rows kept in memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	auditWorker := worker.NewAuditWorker(store, appender, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := amqpClient.ConsumeRecordChanges(ctx, auditWorker.HandleRecordChange); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give the in-flight delivery a moment to settle before closing.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
