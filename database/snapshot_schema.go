package database

import (
	"database/sql"
	"fmt"
)

// Формы таблиц совпадают с исходной системой: Job_Date хранится текстом dd/mm/yyyy
const (
	createBiasesTable = `
		CREATE TABLE IF NOT EXISTS biases (
			Radar_Name TEXT,
			Antenna_Type TEXT,
			Time_Bias REAL,
			Range_Bias REAL,
			Range_Gain REAL,
			Azimuth_Bias REAL,
			Range_Noise REAL,
			Azimuth_Noise REAL,
			Ecc_Value REAL,
			Ecc_Angle REAL,
			Job_Date TEXT
		)`

	createDetectionRatesTable = `
		CREATE TABLE IF NOT EXISTS detection_rates (
			ds_name TEXT,
			ds_type INT,
			pdP REAL,
			pdS REAL,
			pdM REAL,
			pdPS REAL,
			pdPM REAL,
			Job_Date TEXT
		)`

	createIngestionRunsTable = `
		CREATE TABLE IF NOT EXISTS ingestion_runs (
			run_id TEXT NOT NULL,
			partition_name TEXT NOT NULL,
			job_date TEXT NOT NULL,
			bias_rows INTEGER NOT NULL,
			detection_rate_rows INTEGER NOT NULL,
			ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`
)

var snapshotMigrations = []migration{
	{
		name: "biases_job_date_index",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_biases_job_date ON biases(Job_Date)`)
			return err
		},
	},
	{
		name: "detection_rates_job_date_index",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_detection_rates_job_date ON detection_rates(Job_Date)`)
			return err
		},
	},
	{
		name: "ingestion_runs_partition_index",
		apply: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_ingestion_runs_partition ON ingestion_runs(partition_name, job_date)`)
			return err
		},
	},
}

// EnsureSchema идемпотентно создает таблицы хранилища и применяет миграции
func (db *SnapshotDB) EnsureSchema() error {
	for name, ddl := range map[string]string{
		"biases":          createBiasesTable,
		"detection_rates": createDetectionRatesTable,
		"ingestion_runs":  createIngestionRunsTable,
	} {
		if _, err := db.conn.Exec(ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", name, err)
		}
	}

	if err := applyMigrations(db.conn, snapshotMigrations); err != nil {
		return fmt.Errorf("failed to apply snapshot migrations: %w", err)
	}

	return nil
}
