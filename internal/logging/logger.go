package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

var (
	// Logger глобальный структурированный логгер
	Logger *slog.Logger
)

func init() {
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}))
}

// ParseLevel переводит уровень из конфигурации (DEBUG, INFO, WARN, ERROR) в slog.Level.
// Пустая или неизвестная строка дает INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init настраивает глобальный логгер и делает его логгером slog по умолчанию.
// format: "json" (по умолчанию) или "text".
func Init(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: true,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
	return Logger
}

// --- Специализированные функции логирования для загрузки срезов ---

// LogRunStart логирует начало прогона загрузки
func LogRunStart(runID string, partitions int) {
	Logger.Info("Ingestion run started",
		"run_id", runID,
		"partitions", partitions,
	)
}

// LogPartitionCommitted логирует успешную запись партиции
func LogPartitionCommitted(runID, partition, jobDate string, biasRows, detectionRateRows int, duration time.Duration) {
	Logger.Info("Partition committed",
		"run_id", runID,
		"partition", partition,
		"job_date", jobDate,
		"bias_rows", biasRows,
		"detection_rate_rows", detectionRateRows,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogPartitionSkipped логирует пропуск партиции с причиной
func LogPartitionSkipped(runID, partition, jobDate, reason string, err error) {
	Logger.Error("Partition skipped",
		"run_id", runID,
		"partition", partition,
		"job_date", jobDate,
		"reason", reason,
		"error", err,
	)
}

// LogDuplicateIngestion предупреждает о повторной загрузке партиции за ту же дату
func LogDuplicateIngestion(runID, partition, jobDate string) {
	Logger.Warn("Partition already ingested for this job date, rows will be duplicated",
		"run_id", runID,
		"partition", partition,
		"job_date", jobDate,
	)
}

// LogRunFinished логирует итог прогона
func LogRunFinished(runID string, committed, skipped int, duration time.Duration) {
	Logger.Info("Ingestion run finished",
		"run_id", runID,
		"committed", committed,
		"skipped", skipped,
		"duration_ms", duration.Milliseconds(),
	)
}
