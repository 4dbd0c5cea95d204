package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"rqmstats/internal/domain/models"
)

// comparisonColumn описывает статистику, доступную для сравнения радаров
type comparisonColumn struct {
	table       string
	radarColumn string
}

// Имена колонок подставляются в SQL только из этого списка
var comparisonStats = map[string]comparisonColumn{
	"Time_Bias":     {"biases", "Radar_Name"},
	"Range_Bias":    {"biases", "Radar_Name"},
	"Range_Gain":    {"biases", "Radar_Name"},
	"Azimuth_Bias":  {"biases", "Radar_Name"},
	"Range_Noise":   {"biases", "Radar_Name"},
	"Azimuth_Noise": {"biases", "Radar_Name"},
	"Ecc_Value":     {"biases", "Radar_Name"},
	"Ecc_Angle":     {"biases", "Radar_Name"},
	"pdP":           {"detection_rates", "ds_name"},
	"pdS":           {"detection_rates", "ds_name"},
	"pdM":           {"detection_rates", "ds_name"},
	"pdPS":          {"detection_rates", "ds_name"},
	"pdPM":          {"detection_rates", "ds_name"},
}

// ComparisonStats возвращает отсортированный список статистик для сравнения
func ComparisonStats() []string {
	stats := make([]string, 0, len(comparisonStats))
	for name := range comparisonStats {
		stats = append(stats, name)
	}
	sort.Strings(stats)
	return stats
}

// jobDateKey ключ хронологической сортировки; некорректные даты уходят в конец
func jobDateKey(s string) time.Time {
	t, err := time.Parse(models.JobDateLayout, s)
	if err != nil {
		return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// ListRadars возвращает имена радаров, для которых есть калибровки
func (db *SnapshotDB) ListRadars(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT Radar_Name FROM biases ORDER BY Radar_Name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query radars: %w", err)
	}
	defer rows.Close()

	radars := []string{}
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan radar: %w", err)
		}
		if name.Valid {
			radars = append(radars, name.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating radars: %w", err)
	}
	return radars, nil
}

// ListJobDates возвращает все даты заданий в хронологическом порядке
func (db *SnapshotDB) ListJobDates(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT Job_Date FROM biases
		UNION
		SELECT Job_Date FROM detection_rates`)
	if err != nil {
		return nil, fmt.Errorf("failed to query job dates: %w", err)
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var d sql.NullString
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan job date: %w", err)
		}
		if d.Valid {
			dates = append(dates, d.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job dates: %w", err)
	}

	sort.SliceStable(dates, func(i, j int) bool {
		return jobDateKey(dates[i]).Before(jobDateKey(dates[j]))
	})
	return dates, nil
}

// GetBiasesByRadar возвращает историю калибровок радара по датам
func (db *SnapshotDB) GetBiasesByRadar(ctx context.Context, radar string) ([]models.BiasRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT Radar_Name, Antenna_Type, Time_Bias, Range_Bias, Range_Gain,
			Azimuth_Bias, Range_Noise, Azimuth_Noise, Ecc_Value, Ecc_Angle, Job_Date
		FROM biases
		WHERE Radar_Name = ?
		ORDER BY rowid`, radar)
	if err != nil {
		return nil, fmt.Errorf("failed to query biases for %s: %w", radar, err)
	}
	defer rows.Close()

	records := []models.BiasRecord{}
	for rows.Next() {
		var r models.BiasRecord
		err := rows.Scan(
			&r.RadarName, &r.AntennaType, &r.TimeBias, &r.RangeBias, &r.RangeGain,
			&r.AzimuthBias, &r.RangeNoise, &r.AzimuthNoise, &r.EccentricityValue, &r.EccentricityAngle,
			&r.JobDate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bias record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating biases: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return jobDateKey(records[i].JobDate).Before(jobDateKey(records[j].JobDate))
	})
	return records, nil
}

// GetDetectionRatesByRadar возвращает историю вероятностей обнаружения радара
func (db *SnapshotDB) GetDetectionRatesByRadar(ctx context.Context, radar string) ([]models.DetectionRateRecord, error) {
	records, err := db.queryDetectionRates(ctx, `WHERE ds_name = ?`, radar)
	if err != nil {
		return nil, fmt.Errorf("failed to get detection rates for %s: %w", radar, err)
	}
	return records, nil
}

// GetDetectionRatesBetween возвращает вероятности обнаружения за период включительно.
// Даты хранятся текстом dd/mm/yyyy, поэтому фильтрация выполняется после разбора.
func (db *SnapshotDB) GetDetectionRatesBetween(ctx context.Context, from, to models.JobDate) ([]models.DetectionRateRecord, error) {
	all, err := db.queryDetectionRates(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get detection rates between %s and %s: %w", from, to, err)
	}

	filtered := []models.DetectionRateRecord{}
	for _, r := range all {
		t, err := time.Parse(models.JobDateLayout, r.JobDate)
		if err != nil {
			continue
		}
		if t.Before(from.Time()) || t.After(to.Time()) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

func (db *SnapshotDB) queryDetectionRates(ctx context.Context, where string, args ...interface{}) ([]models.DetectionRateRecord, error) {
	query := `
		SELECT ds_name, ds_type, pdP, pdS, pdM, pdPS, pdPM, Job_Date
		FROM detection_rates ` + where + `
		ORDER BY rowid`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection rates: %w", err)
	}
	defer rows.Close()

	records := []models.DetectionRateRecord{}
	for rows.Next() {
		var r models.DetectionRateRecord
		err := rows.Scan(&r.SourceName, &r.SourceType, &r.PdP, &r.PdS, &r.PdM, &r.PdPS, &r.PdPM, &r.JobDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detection rate record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating detection rates: %w", err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return jobDateKey(records[i].JobDate).Before(jobDateKey(records[j].JobDate))
	})
	return records, nil
}

// GetComparisonSeries возвращает значения одной статистики по всем радарам и датам
func (db *SnapshotDB) GetComparisonSeries(ctx context.Context, stat string) ([]models.SeriesPoint, error) {
	col, ok := comparisonStats[stat]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStat, stat)
	}

	query := fmt.Sprintf(`SELECT %s, %s, Job_Date FROM %s ORDER BY rowid`, col.radarColumn, stat, col.table)
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison series for %s: %w", stat, err)
	}
	defer rows.Close()

	points := []models.SeriesPoint{}
	for rows.Next() {
		var p models.SeriesPoint
		if err := rows.Scan(&p.Source, &p.Value, &p.JobDate); err != nil {
			return nil, fmt.Errorf("failed to scan series point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series: %w", err)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return jobDateKey(points[i].JobDate).Before(jobDateKey(points[j].JobDate))
	})
	return points, nil
}

// GetStoreStats возвращает сводку по хранилищу
func (db *SnapshotDB) GetStoreStats(ctx context.Context) (*models.StoreStats, error) {
	stats := &models.StoreStats{RowsPerJobDate: make(map[string]int64)}

	counters := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM biases`, &stats.BiasRows},
		{`SELECT COUNT(*) FROM detection_rates`, &stats.DetectionRateRows},
		{`SELECT COUNT(DISTINCT Radar_Name) FROM biases`, &stats.Radars},
		{`SELECT COUNT(*) FROM (SELECT Job_Date FROM biases UNION SELECT Job_Date FROM detection_rates)`, &stats.JobDates},
		{`SELECT COUNT(*) FROM ingestion_runs`, &stats.IngestionRuns},
	}
	for _, c := range counters {
		if err := db.conn.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to collect store stats: %w", err)
		}
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT Job_Date, COUNT(*) FROM (
			SELECT Job_Date FROM biases
			UNION ALL
			SELECT Job_Date FROM detection_rates
		) GROUP BY Job_Date`)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows per job date: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var date sql.NullString
		var count int64
		if err := rows.Scan(&date, &count); err != nil {
			return nil, fmt.Errorf("failed to scan rows per job date: %w", err)
		}
		if date.Valid {
			stats.RowsPerJobDate[date.String] = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows per job date: %w", err)
	}

	var last sql.NullString
	if err := db.conn.QueryRowContext(ctx, `SELECT MAX(ingested_at) FROM ingestion_runs`).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to query last ingestion: %w", err)
	}
	if last.Valid {
		if t, err := parseSQLiteTime(last.String); err == nil {
			stats.LastIngestedAt = &t
		}
	}

	return stats, nil
}

// parseSQLiteTime разбирает время в форматах, которые пишет go-sqlite3
func parseSQLiteTime(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
