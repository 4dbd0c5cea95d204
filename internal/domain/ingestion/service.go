package ingestion

import (
	"context"
	"errors"
	"time"

	"rqmstats/internal/domain/models"
)

// Source система-источник: одна схема на задание обработки
type Source interface {
	DiscoverPartitions(ctx context.Context) ([]models.PartitionHandle, error)
	FetchBiases(ctx context.Context, partition models.PartitionHandle) ([]models.RawBiasRow, error)
	FetchDetectionRates(ctx context.Context, partition models.PartitionHandle) ([]models.RawDetectionRateRow, error)
}

// Sink хранилище срезов
type Sink interface {
	EnsureSchema() error
	WasIngested(ctx context.Context, partition string, date models.JobDate) (bool, error)
	AppendPartition(ctx context.Context, runID string, snapshot models.PartitionSnapshot) error
}

// DateResolver возвращает строку даты задания для партиции
type DateResolver interface {
	ResolveDate(ctx context.Context, partition models.PartitionHandle) (string, error)
}

// DateResolverFunc адаптер функции к DateResolver
type DateResolverFunc func(ctx context.Context, partition models.PartitionHandle) (string, error)

// ResolveDate вызывает f
func (f DateResolverFunc) ResolveDate(ctx context.Context, partition models.PartitionHandle) (string, error) {
	return f(ctx, partition)
}

// Таблицы хранилища, передаваемые в Recorder.RecordsWritten
const (
	TableBiases         = "biases"
	TableDetectionRates = "detection_rates"
)

// Recorder получает события прогона для метрик.
// outcome принимает значения Status*.
type Recorder interface {
	PartitionFinished(outcome string)
	RecordsWritten(table string, n int)
	RunFinished(at time.Time, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) PartitionFinished(string)             {}
func (nopRecorder) RecordsWritten(string, int)           {}
func (nopRecorder) RunFinished(time.Time, time.Duration) {}

// Статусы обработки партиции
const (
	StatusCommitted     = "committed"
	StatusSkippedDate   = "skipped_date"
	StatusSkippedSource = "skipped_source"
	StatusSkippedCommit = "skipped_commit"
)

// PartitionResult итог обработки одной партиции
type PartitionResult struct {
	Partition         string `json:"partition"`
	JobDate           string `json:"job_date,omitempty"`
	Status            string `json:"status"`
	BiasRows          int    `json:"bias_rows"`
	DetectionRateRows int    `json:"detection_rate_rows"`
	Duplicate         bool   `json:"duplicate,omitempty"`
	Err               error  `json:"-"`
}

// RunReport итог прогона загрузки
type RunReport struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Partitions []PartitionResult `json:"partitions"`
}

// Committed количество записанных партиций
func (r *RunReport) Committed() int {
	n := 0
	for _, p := range r.Partitions {
		if p.Status == StatusCommitted {
			n++
		}
	}
	return n
}

// Skipped количество пропущенных партиций
func (r *RunReport) Skipped() int {
	return len(r.Partitions) - r.Committed()
}

// Err объединяет ошибки всех пропущенных партиций, nil если пропусков не было
func (r *RunReport) Err() error {
	var errs []error
	for _, p := range r.Partitions {
		if p.Err != nil {
			errs = append(errs, p.Err)
		}
	}
	return errors.Join(errs...)
}
