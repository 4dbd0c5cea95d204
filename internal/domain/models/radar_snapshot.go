package models

import (
	"time"
)

// JobDateLayout формат, в котором дата задания хранится и выводится
const JobDateLayout = "02/01/2006"

// JobDate календарная дата задания обработки
type JobDate struct {
	t time.Time
}

// NewJobDate создает дату задания из компонентов
func NewJobDate(year int, month time.Month, day int) JobDate {
	return JobDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// String возвращает дату в каноническом виде dd/mm/yyyy
func (d JobDate) String() string {
	return d.t.Format(JobDateLayout)
}

// Time возвращает дату как time.Time (полночь UTC)
func (d JobDate) Time() time.Time {
	return d.t
}

// Before сравнивает даты хронологически
func (d JobDate) Before(other JobDate) bool {
	return d.t.Before(other.t)
}

// PartitionHandle одна схема источника, соответствующая одному заданию
type PartitionHandle struct {
	Name string `json:"name"`
}

// RawBiasRow строка выгрузки калибровок до нормализации.
// nil означает NULL в источнике.
type RawBiasRow struct {
	RadarName       *string
	AntennaType     *string
	TimeBias        *float64
	RangeBias       *float64
	RangeGain       *float64 // безразмерный коэффициент, не смещение
	AzimuthBias     *float64
	RangeNoise      *float64
	AzimuthNoise    *float64
	EccentricityVal *float64
	EccentricityAng *float64
}

// RawDetectionRateRow строка выгрузки вероятностей обнаружения до нормализации
type RawDetectionRateRow struct {
	SourceName *string
	SourceType *int64
	PdP        *float64
	PdS        *float64
	PdM        *float64
	PdPS       *float64
	PdPM       *float64
}

// BiasRecord нормализованный срез калибровки пары (радар, режим антенны)
type BiasRecord struct {
	RadarName         string  `json:"radar_name"`
	AntennaType       string  `json:"antenna_type"`
	TimeBias          float64 `json:"time_bias"`
	RangeBias         float64 `json:"range_bias"`
	RangeGain         float64 `json:"range_gain"`
	AzimuthBias       float64 `json:"azimuth_bias"`
	RangeNoise        float64 `json:"range_noise"`
	AzimuthNoise      float64 `json:"azimuth_noise"`
	EccentricityValue float64 `json:"eccentricity_value"`
	EccentricityAngle float64 `json:"eccentricity_angle"`
	JobDate           string  `json:"job_date"`
}

// DetectionRateRecord нормализованный срез вероятностей обнаружения радара
type DetectionRateRecord struct {
	SourceName string  `json:"source_name"`
	SourceType int64   `json:"source_type"`
	PdP        float64 `json:"pdP"`
	PdS        float64 `json:"pdS"`
	PdM        float64 `json:"pdM"`
	PdPS       float64 `json:"pdPS"`
	PdPM       float64 `json:"pdPM"`
	JobDate    string  `json:"job_date"`
}

// PartitionSnapshot все записи одной партиции за одну дату.
// Фиксируется в хранилище целиком или не фиксируется вовсе.
type PartitionSnapshot struct {
	Partition      string
	JobDate        JobDate
	Biases         []BiasRecord
	DetectionRates []DetectionRateRecord
}

// SeriesPoint точка временного ряда для сравнения радаров
type SeriesPoint struct {
	Source  string  `json:"source"`
	Value   float64 `json:"value"`
	JobDate string  `json:"job_date"`
}

// StoreStats сводка по содержимому хранилища
type StoreStats struct {
	BiasRows          int64            `json:"bias_rows"`
	DetectionRateRows int64            `json:"detection_rate_rows"`
	Radars            int64            `json:"radars"`
	JobDates          int64            `json:"job_dates"`
	IngestionRuns     int64            `json:"ingestion_runs"`
	RowsPerJobDate    map[string]int64 `json:"rows_per_job_date"`
	LastIngestedAt    *time.Time       `json:"last_ingested_at,omitempty"`
}
