package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rqmstats/database"
	"rqmstats/internal/config"
	"rqmstats/internal/infrastructure/monitoring"
	"rqmstats/internal/logging"
	"rqmstats/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default: config.yaml if present)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.Init(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)

	db, err := database.NewSnapshotDBWithConfig(cfg.Store.Path, cfg.DBConfig())
	if err != nil {
		log.Fatalf("Failed to open snapshot database: %v", err)
	}
	defer db.Close()

	// Пустое хранилище отдает пустые ряды, а не ошибки
	if err := db.EnsureSchema(); err != nil {
		log.Fatalf("Failed to prepare snapshot schema: %v", err)
	}

	srv := server.NewServer(cfg.Server, db, monitoring.NewManager())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server stopped with error", "error", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	<-errCh
}
