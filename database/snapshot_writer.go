package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rqmstats/internal/domain/models"
)

const (
	insertBiasQuery = `
		INSERT INTO biases (
			Radar_Name, Antenna_Type, Time_Bias, Range_Bias, Range_Gain,
			Azimuth_Bias, Range_Noise, Azimuth_Noise, Ecc_Value, Ecc_Angle, Job_Date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertDetectionRateQuery = `
		INSERT INTO detection_rates (
			ds_name, ds_type, pdP, pdS, pdM, pdPS, pdPM, Job_Date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	insertIngestionRunQuery = `
		INSERT INTO ingestion_runs (
			run_id, partition_name, job_date, bias_rows, detection_rate_rows, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?)`
)

// SnapshotTx транзакция записи срезов одной партиции.
// Добавления только дописывают строки, дубликаты не устраняются.
type SnapshotTx struct {
	ctx  context.Context
	tx   *sql.Tx
	done bool
}

// BeginSnapshot открывает транзакцию записи
func (db *SnapshotDB) BeginSnapshot(ctx context.Context) (*SnapshotTx, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	return &SnapshotTx{ctx: ctx, tx: tx}, nil
}

// AppendBiases дописывает записи калибровок
func (s *SnapshotTx) AppendBiases(records []models.BiasRecord) error {
	if s.done {
		return ErrSnapshotFinalized
	}
	if len(records) == 0 {
		return nil
	}

	stmt, err := s.tx.PrepareContext(s.ctx, insertBiasQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare biases insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if err := checkRecordDate(r.JobDate); err != nil {
			return fmt.Errorf("bias record %d (%s/%s): %w", i, r.RadarName, r.AntennaType, err)
		}
		_, err := stmt.ExecContext(s.ctx,
			r.RadarName, r.AntennaType, r.TimeBias, r.RangeBias, r.RangeGain,
			r.AzimuthBias, r.RangeNoise, r.AzimuthNoise, r.EccentricityValue, r.EccentricityAngle,
			r.JobDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bias record %d (%s/%s): %w", i, r.RadarName, r.AntennaType, err)
		}
	}

	return nil
}

// AppendDetectionRates дописывает записи вероятностей обнаружения
func (s *SnapshotTx) AppendDetectionRates(records []models.DetectionRateRecord) error {
	if s.done {
		return ErrSnapshotFinalized
	}
	if len(records) == 0 {
		return nil
	}

	stmt, err := s.tx.PrepareContext(s.ctx, insertDetectionRateQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare detection_rates insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if err := checkRecordDate(r.JobDate); err != nil {
			return fmt.Errorf("detection rate record %d (%s): %w", i, r.SourceName, err)
		}
		_, err := stmt.ExecContext(s.ctx,
			r.SourceName, r.SourceType, r.PdP, r.PdS, r.PdM, r.PdPS, r.PdPM, r.JobDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert detection rate record %d (%s): %w", i, r.SourceName, err)
		}
	}

	return nil
}

// RecordRun сохраняет отметку о загрузке партиции в журнал ingestion_runs
func (s *SnapshotTx) RecordRun(runID, partition string, date models.JobDate, biasRows, detectionRateRows int) error {
	if s.done {
		return ErrSnapshotFinalized
	}
	_, err := s.tx.ExecContext(s.ctx, insertIngestionRunQuery,
		runID, partition, date.String(), biasRows, detectionRateRows, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record ingestion run: %w", err)
	}
	return nil
}

// Commit фиксирует транзакцию
func (s *SnapshotTx) Commit() error {
	if s.done {
		return ErrSnapshotFinalized
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}
	return nil
}

// Rollback откатывает транзакцию. Повторный вызов после Commit безопасен.
func (s *SnapshotTx) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback snapshot transaction: %w", err)
	}
	return nil
}

// AppendPartition атомарно записывает срез партиции: обе таблицы и журнал
// получают все записи или не получают ничего.
func (db *SnapshotDB) AppendPartition(ctx context.Context, runID string, snapshot models.PartitionSnapshot) error {
	if err := checkSnapshotDates(snapshot); err != nil {
		return err
	}

	tx, err := db.BeginSnapshot(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.AppendBiases(snapshot.Biases); err != nil {
		return err
	}
	if err := tx.AppendDetectionRates(snapshot.DetectionRates); err != nil {
		return err
	}
	if err := tx.RecordRun(runID, snapshot.Partition, snapshot.JobDate, len(snapshot.Biases), len(snapshot.DetectionRates)); err != nil {
		return err
	}

	return tx.Commit()
}

// WasIngested сообщает, загружалась ли уже партиция за эту дату
func (db *SnapshotDB) WasIngested(ctx context.Context, partition string, date models.JobDate) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ingestion_runs WHERE partition_name = ? AND job_date = ?`,
		partition, date.String(),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check ingestion history: %w", err)
	}
	return count > 0, nil
}

func checkRecordDate(jobDate string) error {
	if _, err := time.Parse(models.JobDateLayout, jobDate); err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedJobDate, jobDate)
	}
	return nil
}

func checkSnapshotDates(snapshot models.PartitionSnapshot) error {
	want := snapshot.JobDate.String()
	for _, r := range snapshot.Biases {
		if r.JobDate != want {
			return fmt.Errorf("%w: partition %s has %q, record %s/%s has %q",
				ErrJobDateMismatch, snapshot.Partition, want, r.RadarName, r.AntennaType, r.JobDate)
		}
	}
	for _, r := range snapshot.DetectionRates {
		if r.JobDate != want {
			return fmt.Errorf("%w: partition %s has %q, record %s has %q",
				ErrJobDateMismatch, snapshot.Partition, want, r.SourceName, r.JobDate)
		}
	}
	return nil
}
