package main

import (
	"archive/zip"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rqmstats/database"
	"rqmstats/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "stats":
		handleStats(os.Args[2:])
	case "backup":
		handleBackup(os.Args[2:])
	case "init":
		handleInit(os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Database Manager - CLI utility for the radar snapshot store")
	fmt.Println()
	fmt.Println("Usage: db-manager <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  stats  [--db=path]                  Show store contents summary")
	fmt.Println("  backup [--db=path] [--output=path]  Create a zipped consistent copy of the store")
	fmt.Println("  init   [--db=path]                  Create tables and indexes if missing")
	fmt.Println()
	fmt.Println("All commands accept --config=path. Without --db the store path comes from")
	fmt.Println("store.path in the config file or RQM_DB_PATH.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  db-manager stats")
	fmt.Println("  db-manager backup --output=backup.zip")
}

// storeFlags регистрирует общие флаги выбора хранилища
func storeFlags(fs *flag.FlagSet) (configPath, dbPath *string) {
	configPath = fs.String("config", "", "Path to YAML config (default: config.yaml if present)")
	dbPath = fs.String("db", "", "Snapshot database path (overrides config)")
	return configPath, dbPath
}

// resolveStorePath возвращает путь из --db, иначе store.path из конфигурации с учетом окружения
func resolveStorePath(configPath, dbPath string) (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return "", fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg.Store.Path, nil
}

func mustStorePath(configPath, dbPath string) string {
	path, err := resolveStorePath(configPath, dbPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return path
}

// openStore открывает существующее хранилище без изменения схемы
func openStore(path string) (*database.SnapshotDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("snapshot database %s is not accessible: %w", path, err)
	}
	db, err := database.NewSnapshotDB(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot database: %w", err)
	}
	return db, nil
}

func handleStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath, dbPath := storeFlags(fs)
	fs.Parse(args)

	db, err := openStore(mustStorePath(*configPath, *dbPath))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	if err := writeStats(context.Background(), os.Stdout, db); err != nil {
		log.Fatalf("Failed to collect stats: %v", err)
	}
}

func writeStats(ctx context.Context, w io.Writer, db *database.SnapshotDB) error {
	stats, err := db.GetStoreStats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Store: %s\n", db.Path())
	fmt.Fprintf(w, "  Bias rows:           %d\n", stats.BiasRows)
	fmt.Fprintf(w, "  Detection rate rows: %d\n", stats.DetectionRateRows)
	fmt.Fprintf(w, "  Radars:              %d\n", stats.Radars)
	fmt.Fprintf(w, "  Job dates:           %d\n", stats.JobDates)
	fmt.Fprintf(w, "  Ingestion runs:      %d\n", stats.IngestionRuns)
	if stats.LastIngestedAt != nil {
		fmt.Fprintf(w, "  Last ingested at:    %s\n", stats.LastIngestedAt.Format(time.RFC3339))
	}

	dates, err := db.ListJobDates(ctx)
	if err != nil {
		return err
	}
	if len(dates) > 0 {
		fmt.Fprintln(w, "\nRows per job date:")
		for _, d := range dates {
			fmt.Fprintf(w, "  %s  %d\n", d, stats.RowsPerJobDate[d])
		}
	}

	// Строки с датой вне формата dd/mm/yyyy не попадают в хронологию
	var odd []string
	for d := range stats.RowsPerJobDate {
		if !contains(dates, d) {
			odd = append(odd, d)
		}
	}
	if len(odd) > 0 {
		sort.Strings(odd)
		fmt.Fprintf(w, "\nUnrecognized job dates: %s\n", strings.Join(odd, ", "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func handleBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	configPath, dbPath := storeFlags(fs)
	outputPath := fs.String("output", "", "Output path for backup file")
	fs.Parse(args)

	backupPath := *outputPath
	if backupPath == "" {
		backupDir := "data/backups"
		if err := os.MkdirAll(backupDir, 0755); err != nil {
			log.Fatalf("Failed to create backup directory: %v", err)
		}
		backupPath = filepath.Join(backupDir, fmt.Sprintf("backup_%s.zip", time.Now().Format("20060102_150405")))
	} else if !strings.HasSuffix(backupPath, ".zip") {
		backupPath += ".zip"
	}

	db, err := openStore(mustStorePath(*configPath, *dbPath))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	size, err := createBackup(context.Background(), db, backupPath)
	if err != nil {
		log.Fatalf("Backup failed: %v", err)
	}

	fmt.Printf("Backup created: %s (%d bytes of data)\n", backupPath, size)
}

// createBackup снимает копию хранилища через VACUUM INTO и упаковывает её в zip
func createBackup(ctx context.Context, db *database.SnapshotDB, backupPath string) (int64, error) {
	tmpDir, err := os.MkdirTemp("", "rqm-backup-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshotPath := filepath.Join(tmpDir, filepath.Base(db.Path()))
	if err := db.BackupTo(ctx, snapshotPath); err != nil {
		return 0, err
	}

	zipFile, err := os.Create(backupPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)

	sourceFile, err := os.Open(snapshotPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open snapshot copy: %w", err)
	}
	defer sourceFile.Close()

	archiveFile, err := zipWriter.Create(filepath.Base(db.Path()))
	if err != nil {
		return 0, fmt.Errorf("failed to create archive entry: %w", err)
	}

	size, err := io.Copy(archiveFile, sourceFile)
	if err != nil {
		return 0, fmt.Errorf("failed to copy snapshot to archive: %w", err)
	}

	if err := zipWriter.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return size, nil
}

func handleInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath, dbPath := storeFlags(fs)
	fs.Parse(args)

	path := mustStorePath(*configPath, *dbPath)
	db, err := database.NewSnapshotDB(path)
	if err != nil {
		log.Fatalf("Failed to open snapshot database: %v", err)
	}
	defer db.Close()

	if err := db.EnsureSchema(); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	fmt.Printf("Schema ready: %s\n", path)
}
