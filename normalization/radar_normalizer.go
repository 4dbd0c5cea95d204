package normalization

import (
	"math"

	"rqmstats/internal/domain/models"
)

const (
	// SentinelAbsent подставляется вместо отсутствующего значения
	SentinelAbsent = -1
	// SentinelAbsentText текстовый вариант SentinelAbsent
	SentinelAbsentText = "-1"
	// NauticalMileMeters метров в морской миле
	NauticalMileMeters = 1852
	// BiasPrecision знаков после запятой для полей калибровки
	BiasPrecision = 5
)

var biasScale = math.Pow10(BiasPrecision)

// NormalizeBias приводит сырую строку калибровки к BiasRecord.
// Коэффициент дальности сначала переводится в смещение (gain-1)*1852,
// затем применяется общая политика: NULL -> -1, иначе округление до 5 знаков.
func NormalizeBias(raw models.RawBiasRow, date models.JobDate) models.BiasRecord {
	var rangeGain *float64
	if raw.RangeGain != nil {
		g := (*raw.RangeGain - 1) * NauticalMileMeters
		rangeGain = &g
	}

	return models.BiasRecord{
		RadarName:         textOrSentinel(raw.RadarName),
		AntennaType:       textOrSentinel(raw.AntennaType),
		TimeBias:          roundedOrSentinel(raw.TimeBias),
		RangeBias:         roundedOrSentinel(raw.RangeBias),
		RangeGain:         roundedOrSentinel(rangeGain),
		AzimuthBias:       roundedOrSentinel(raw.AzimuthBias),
		RangeNoise:        roundedOrSentinel(raw.RangeNoise),
		AzimuthNoise:      roundedOrSentinel(raw.AzimuthNoise),
		EccentricityValue: roundedOrSentinel(raw.EccentricityVal),
		EccentricityAngle: roundedOrSentinel(raw.EccentricityAng),
		JobDate:           date.String(),
	}
}

// NormalizeDetectionRate приводит сырую строку вероятностей обнаружения к DetectionRateRecord.
// Проценты не округляются.
func NormalizeDetectionRate(raw models.RawDetectionRateRow, date models.JobDate) models.DetectionRateRecord {
	sourceType := int64(SentinelAbsent)
	if raw.SourceType != nil {
		sourceType = *raw.SourceType
	}

	return models.DetectionRateRecord{
		SourceName: textOrSentinel(raw.SourceName),
		SourceType: sourceType,
		PdP:        valueOrSentinel(raw.PdP),
		PdS:        valueOrSentinel(raw.PdS),
		PdM:        valueOrSentinel(raw.PdM),
		PdPS:       valueOrSentinel(raw.PdPS),
		PdPM:       valueOrSentinel(raw.PdPM),
		JobDate:    date.String(),
	}
}

// NormalizeBiases нормализует набор строк с сохранением порядка
func NormalizeBiases(rows []models.RawBiasRow, date models.JobDate) []models.BiasRecord {
	records := make([]models.BiasRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, NormalizeBias(row, date))
	}
	return records
}

// NormalizeDetectionRates нормализует набор строк с сохранением порядка
func NormalizeDetectionRates(rows []models.RawDetectionRateRow, date models.JobDate) []models.DetectionRateRecord {
	records := make([]models.DetectionRateRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, NormalizeDetectionRate(row, date))
	}
	return records
}

// RoundBias округляет значение до BiasPrecision знаков
func RoundBias(v float64) float64 {
	return math.Round(v*biasScale) / biasScale
}

func valueOrSentinel(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return SentinelAbsent
	}
	return *v
}

func roundedOrSentinel(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return SentinelAbsent
	}
	return RoundBias(*v)
}

func textOrSentinel(s *string) string {
	if s == nil {
		return SentinelAbsentText
	}
	return *s
}
