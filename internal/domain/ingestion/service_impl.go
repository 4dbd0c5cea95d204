package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"rqmstats/internal/domain/models"
	"rqmstats/internal/logging"
	"rqmstats/normalization"

	"github.com/google/uuid"
)

// Orchestrator последовательно загружает партиции источника в хранилище срезов.
// Ошибка одной партиции не прерывает прогон.
type Orchestrator struct {
	source   Source
	sink     Sink
	resolver DateResolver
	recorder Recorder
	out      io.Writer
	runID    string
	now      func() time.Time
}

// Option настройка Orchestrator
type Option func(*Orchestrator)

// WithOutput задает поток для сообщений пользователю
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithRunID задает идентификатор прогона вместо случайного UUID
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// WithRecorder задает приемник метрик
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// NewOrchestrator создает оркестратор загрузки
func NewOrchestrator(source Source, sink Sink, resolver DateResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:   source,
		sink:     sink,
		resolver: resolver,
		recorder: nopRecorder{},
		out:      os.Stderr,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runID == "" {
		o.runID = uuid.New().String()
	}
	return o
}

// RunID возвращает идентификатор прогона
func (o *Orchestrator) RunID() string {
	return o.runID
}

// RunDiscovered находит партиции источника и загружает их.
// Ошибка поиска партиций фатальна.
func (o *Orchestrator) RunDiscovered(ctx context.Context) (*RunReport, error) {
	partitions, err := o.source.DiscoverPartitions(ctx)
	if err != nil {
		logging.Logger.Error("Partition discovery failed", "run_id", o.runID, "error", err)
		return nil, fmt.Errorf("discover partitions: %w: %w", ErrSourceQuery, err)
	}
	return o.Run(ctx, partitions)
}

// Run загружает партиции по порядку. Возвращает ошибку только для фатальных
// ситуаций: недоступная схема хранилища или отмена контекста. Пропуски партиций
// отражаются в отчете.
func (o *Orchestrator) Run(ctx context.Context, partitions []models.PartitionHandle) (*RunReport, error) {
	start := o.now()
	report := &RunReport{
		RunID:      o.runID,
		StartedAt:  start,
		Partitions: make([]PartitionResult, 0, len(partitions)),
	}
	logging.LogRunStart(o.runID, len(partitions))

	defer func() {
		report.FinishedAt = o.now()
		duration := report.FinishedAt.Sub(start)
		o.recorder.RunFinished(report.FinishedAt, duration)
		logging.LogRunFinished(o.runID, report.Committed(), report.Skipped(), duration)
	}()

	if err := o.sink.EnsureSchema(); err != nil {
		logging.Logger.Error("Snapshot schema unavailable, aborting run", "run_id", o.runID, "error", err)
		return report, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	for _, p := range partitions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		result := o.processPartition(ctx, p)
		if result.Err != nil && ctx.Err() != nil {
			// Отмена посреди партиции: транзакция уже откатана, пропуск не учитываем
			return report, ctx.Err()
		}

		report.Partitions = append(report.Partitions, result)
		o.recorder.PartitionFinished(result.Status)
	}

	return report, nil
}

func (o *Orchestrator) processPartition(ctx context.Context, p models.PartitionHandle) PartitionResult {
	started := o.now()
	result := PartitionResult{Partition: p.Name}

	input, err := o.resolver.ResolveDate(ctx, p)
	if err != nil {
		return o.skip(result, StatusSkippedDate, ErrDateFormat, err,
			"Could not read the date for job '%s': %v\n", p.Name, err)
	}

	date, err := normalization.ParseJobDate(input)
	if err != nil {
		return o.skip(result, StatusSkippedDate, ErrDateFormat, err,
			"Invalid date for job '%s': %v. Skipping.\n", p.Name, err)
	}
	result.JobDate = date.String()

	rawBiases, err := o.source.FetchBiases(ctx, p)
	if err != nil {
		return o.skip(result, StatusSkippedSource, ErrSourceQuery, err,
			"Error reading biases for job '%s': %v. Skipping.\n", p.Name, err)
	}
	rawRates, err := o.source.FetchDetectionRates(ctx, p)
	if err != nil {
		return o.skip(result, StatusSkippedSource, ErrSourceQuery, err,
			"Error reading detection rates for job '%s': %v. Skipping.\n", p.Name, err)
	}

	snapshot := models.PartitionSnapshot{
		Partition:      p.Name,
		JobDate:        date,
		Biases:         normalization.NormalizeBiases(rawBiases, date),
		DetectionRates: normalization.NormalizeDetectionRates(rawRates, date),
	}

	// Повторная загрузка не блокируется, только предупреждение
	seen, err := o.sink.WasIngested(ctx, p.Name, date)
	if err != nil {
		logging.Logger.Warn("Could not check ingestion history",
			"run_id", o.runID, "partition", p.Name, "error", err)
	} else if seen {
		result.Duplicate = true
		logging.LogDuplicateIngestion(o.runID, p.Name, result.JobDate)
		fmt.Fprintf(o.out, "Warning: job '%s' was already ingested for %s, its rows will be stored again.\n",
			p.Name, result.JobDate)
	}

	if err := o.sink.AppendPartition(ctx, o.runID, snapshot); err != nil {
		return o.skip(result, StatusSkippedCommit, ErrCommit, err,
			"Failed to save data for job '%s': %v. Nothing was written for it.\n", p.Name, err)
	}

	result.Status = StatusCommitted
	result.BiasRows = len(snapshot.Biases)
	result.DetectionRateRows = len(snapshot.DetectionRates)
	o.recorder.RecordsWritten(TableBiases, result.BiasRows)
	o.recorder.RecordsWritten(TableDetectionRates, result.DetectionRateRows)

	logging.LogPartitionCommitted(o.runID, p.Name, result.JobDate,
		result.BiasRows, result.DetectionRateRows, o.now().Sub(started))
	fmt.Fprintf(o.out, "Data for job '%s' (%s) saved: %d bias rows, %d detection rate rows.\n",
		p.Name, result.JobDate, result.BiasRows, result.DetectionRateRows)

	return result
}

func (o *Orchestrator) skip(result PartitionResult, status string, kind, cause error, format string, args ...interface{}) PartitionResult {
	result.Status = status
	result.Err = &PartitionError{Partition: result.Partition, Kind: kind, Err: cause}

	if !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		logging.LogPartitionSkipped(o.runID, result.Partition, result.JobDate, status, cause)
		fmt.Fprintf(o.out, format, args...)
	}
	return result
}
