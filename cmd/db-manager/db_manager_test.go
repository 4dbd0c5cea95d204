package main

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rqmstats/database"
	"rqmstats/internal/domain/models"
)

// createTestStore создает файл хранилища с одной партицией
func createTestStore(t *testing.T) *database.SnapshotDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rqmData.db")

	db, err := database.NewSnapshotDB(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.EnsureSchema(); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	date := models.NewJobDate(2024, time.January, 15)
	snapshot := models.PartitionSnapshot{
		Partition: "job_verifsassuser_7",
		JobDate:   date,
		Biases: []models.BiasRecord{
			{RadarName: "R1", AntennaType: "PSR", JobDate: date.String()},
			{RadarName: "R2", AntennaType: "SSR", JobDate: date.String()},
		},
		DetectionRates: []models.DetectionRateRecord{
			{SourceName: "R1", SourceType: 1, PdP: 99, PdS: -1, PdM: -1, PdPS: -1, PdPM: -1, JobDate: date.String()},
		},
	}
	if err := db.AppendPartition(context.Background(), "run-test", snapshot); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}
	return db
}

// TestWriteStats тестирует вывод команды stats
func TestWriteStats(t *testing.T) {
	db := createTestStore(t)

	var buf bytes.Buffer
	if err := writeStats(context.Background(), &buf, db); err != nil {
		t.Fatalf("writeStats() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Bias rows:           2",
		"Detection rate rows: 1",
		"Radars:              2",
		"Ingestion runs:      1",
		"15/01/2024  3",
		"Last ingested at:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Unrecognized job dates") {
		t.Errorf("unexpected unrecognized dates in output:\n%s", out)
	}
}

// TestCreateBackup тестирует создание zip архива
func TestCreateBackup(t *testing.T) {
	db := createTestStore(t)
	backupPath := filepath.Join(t.TempDir(), "backup.zip")

	size, err := createBackup(context.Background(), db, backupPath)
	if err != nil {
		t.Fatalf("createBackup() error = %v", err)
	}
	if size == 0 {
		t.Error("backup should not be empty")
	}

	reader, err := zip.OpenReader(backupPath)
	if err != nil {
		t.Fatalf("Failed to open backup: %v", err)
	}
	defer reader.Close()

	if len(reader.File) != 1 || reader.File[0].Name != "rqmData.db" {
		t.Fatalf("unexpected archive contents: %v", reader.File)
	}

	// Распаковываем и проверяем, что копия читается
	rc, err := reader.File[0].Open()
	if err != nil {
		t.Fatalf("Failed to open archive entry: %v", err)
	}
	defer rc.Close()

	restored := filepath.Join(t.TempDir(), "restored.db")
	out, err := os.Create(restored)
	if err != nil {
		t.Fatalf("Failed to create restored file: %v", err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		t.Fatalf("Failed to extract: %v", err)
	}
	out.Close()

	copyDB, err := database.NewSnapshotDB(restored)
	if err != nil {
		t.Fatalf("Failed to open restored store: %v", err)
	}
	defer copyDB.Close()

	radars, err := copyDB.ListRadars(context.Background())
	if err != nil {
		t.Fatalf("ListRadars() error = %v", err)
	}
	if len(radars) != 2 {
		t.Errorf("restored radars = %v, want 2", radars)
	}
}

// schemaObjects возвращает имена таблиц и индексов хранилища
func schemaObjects(t *testing.T, db *database.SnapshotDB) []string {
	t.Helper()
	rows, err := db.GetDB().Query(`SELECT name FROM sqlite_master WHERE type IN ('table', 'index') ORDER BY name`)
	if err != nil {
		t.Fatalf("Failed to list schema objects: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Failed to scan schema object: %v", err)
		}
		names = append(names, name)
	}
	return names
}

// TestStatsDoesNotChangeSchema тестирует, что stats не применяет миграции
func TestStatsDoesNotChangeSchema(t *testing.T) {
	seeded := createTestStore(t)

	// Хранилище, созданное до появления миграций
	for _, stmt := range []string{
		"DROP INDEX idx_biases_job_date",
		"DROP INDEX idx_detection_rates_job_date",
		"DROP INDEX idx_ingestion_runs_partition",
		"DROP TABLE schema_migrations",
	} {
		if _, err := seeded.GetDB().Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	before := schemaObjects(t, seeded)

	db, err := openStore(seeded.Path())
	if err != nil {
		t.Fatalf("openStore() error = %v", err)
	}
	var buf bytes.Buffer
	if err := writeStats(context.Background(), &buf, db); err != nil {
		t.Fatalf("writeStats() error = %v", err)
	}
	db.Close()

	after := schemaObjects(t, seeded)
	if strings.Join(before, ",") != strings.Join(after, ",") {
		t.Errorf("schema changed by stats: before %v, after %v", before, after)
	}
}

func TestOpenStore_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	if _, err := openStore(path); err == nil {
		t.Fatal("openStore() should fail for a missing store")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("openStore() must not create %s", path)
	}
}

func TestResolveStorePath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rqm.yaml")
	if err := os.WriteFile(configPath, []byte("store:\n  path: /srv/rqm/from-yaml.db\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	tests := []struct {
		name       string
		configEnv  string
		dbEnv      string
		configPath string
		dbPath     string
		want       string
	}{
		{"flag wins", configPath, "", configPath, "/tmp/flag.db", "/tmp/flag.db"},
		{"explicit config file", "", "", configPath, "", "/srv/rqm/from-yaml.db"},
		{"default config via RQM_CONFIG", configPath, "", "", "", "/srv/rqm/from-yaml.db"},
		{"env overrides config file", configPath, "/srv/rqm/env.db", "", "", "/srv/rqm/env.db"},
		{"defaults without config", filepath.Join(dir, "absent.yaml"), "", "", "", "rqmData.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("RQM_CONFIG", tt.configEnv)
			t.Setenv("RQM_DB_PATH", tt.dbEnv)

			got, err := resolveStorePath(tt.configPath, tt.dbPath)
			if err != nil {
				t.Fatalf("resolveStorePath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveStorePath() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := resolveStorePath(filepath.Join(dir, "missing.yaml"), ""); err == nil {
		t.Error("resolveStorePath() should fail for a missing explicit config")
	}
}
