package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finadmin/internal/amqp"
	"finadmin/internal/api"
	"finadmin/internal/config"
	"finadmin/internal/log"
	"finadmin/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.NewRecordStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize record store",
			log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Change events are optional: without AMQP the API still serves, it
	// just stops feeding the audit worker.
	var publisher api.ChangePublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP change events enabled",
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	apiServer := api.NewServer(store, publisher, logger)
	defer apiServer.Close()

	srv := &http.Server{
		Addr:           ":" + cfg.APIPort,
		Handler:        apiServer,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting finadmin API", "port", cfg.APIPort, "db", cfg.SQLiteDBPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.APIPort)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("API stopped gracefully")
}
