package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"rqmstats/database"
	"rqmstats/internal/config"
	"rqmstats/internal/domain/ingestion"
	"rqmstats/internal/domain/models"
	"rqmstats/internal/infrastructure/console"
	"rqmstats/internal/infrastructure/monitoring"
	"rqmstats/internal/infrastructure/source"
	"rqmstats/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to YAML config (default: config.yaml if present)")
	dbPath := fs.String("db", "", "snapshot database path (overrides config)")
	partitions := fs.String("partitions", "", "comma-separated job schemas to ingest instead of discovering them")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return 1
	}
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}

	// Stdout занят диалогом с оператором, логи идут в stderr
	logging.Init(stderr, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.ValidateCredentials(); err != nil {
		fmt.Fprintf(stderr, "Invalid source credentials: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewSnapshotDBWithConfig(cfg.Store.Path, cfg.DBConfig())
	if err != nil {
		fmt.Fprintf(stderr, "Error opening snapshot database: %v\n", err)
		return 1
	}
	defer db.Close()

	src, err := source.NewMySQLSource(ctx, cfg.SourceConfig())
	if err != nil {
		fmt.Fprintf(stderr, "MySQL Error: %v\n", err)
		return 1
	}
	defer src.Close()

	metrics := monitoring.NewManager()
	orchestrator := ingestion.NewOrchestrator(src, db,
		console.NewDateResolver(stdin, stdout),
		ingestion.WithOutput(stdout),
		ingestion.WithRecorder(metrics),
	)

	var report *ingestion.RunReport
	if *partitions != "" {
		report, err = orchestrator.Run(ctx, parsePartitions(*partitions))
	} else {
		report, err = orchestrator.RunDiscovered(ctx)
	}

	if cfg.Metrics.TextfilePath != "" {
		if werr := metrics.WriteTextfile(cfg.Metrics.TextfilePath); werr != nil {
			logging.Logger.Warn("Could not write metrics textfile", "error", werr)
		}
	}

	if report != nil {
		printSummary(stdout, report)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Ingestion aborted: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadDefault()
	}
	return config.LoadConfig(path)
}

func parsePartitions(s string) []models.PartitionHandle {
	var out []models.PartitionHandle
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			out = append(out, models.PartitionHandle{Name: name})
		}
	}
	return out
}

func printSummary(w io.Writer, report *ingestion.RunReport) {
	fmt.Fprintf(w, "\nRun %s: %d committed, %d skipped\n", report.RunID, report.Committed(), report.Skipped())
	for _, p := range report.Partitions {
		date := p.JobDate
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(w, "  %-32s %-11s %-15s biases=%d detection_rates=%d\n",
			p.Partition, date, p.Status, p.BiasRows, p.DetectionRateRows)
	}
}
