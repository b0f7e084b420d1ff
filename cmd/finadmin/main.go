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

	"finadmin/internal/columns"
	"finadmin/internal/config"
	"finadmin/internal/grid"
	"finadmin/internal/log"
	"finadmin/internal/rest"
	"finadmin/internal/screens"
	"finadmin/internal/server"
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

	client := rest.New(cfg.APIBaseURL, cfg.RequestTimeout)

	store, err := columns.NewFileStore(cfg.ColumnPrefsPath)
	if err != nil {
		logger.Error("Failed to open column preferences store",
			log.FieldError, err, "path", cfg.ColumnPrefsPath)
		os.Exit(1)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	ref := screens.LoadReference(startCtx, client, logger)

	var grids []*grid.Grid
	for _, sc := range screens.All(ref) {
		sc.ImportConcurrency = cfg.ImportConcurrency
		possible := sc.Columns
		if len(possible) == 0 {
			possible = columns.FromSchema(sc.Fields)
		}
		cols := columns.NewModel(sc.Route, possible, store)
		g, err := grid.New(sc, client, cols, logger)
		if err != nil {
			logger.Error("Failed to build screen", log.FieldScreen, sc.Route, log.FieldError, err)
			os.Exit(1)
		}
		g.Load(startCtx)
		grids = append(grids, g)
	}

	srv, err := server.NewServer(":"+cfg.Port, grids, logger)
	if err != nil {
		logger.Error("Failed to build server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

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

	logger.Info("Starting finadmin server", "port", cfg.Port, "api", cfg.APIBaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
