package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"rqmstats/internal/domain/models"
	"rqmstats/internal/logging"
)

// Config параметры подключения к серверу заданий
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// Timeout ограничивает установку соединения
	Timeout     time.Duration
	// ReadTimeout ограничивает ожидание ответа сервера. Ноль - без ограничения.
	ReadTimeout time.Duration
}

// DSN строит строку подключения go-sql-driver/mysql
func (c Config) DSN() string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.User = c.User
	cfg.Passwd = c.Password
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
	}
	if c.ReadTimeout > 0 {
		cfg.ReadTimeout = c.ReadTimeout
	}
	return cfg.FormatDSN()
}

// MySQLSource источник данных заданий на MySQL/MariaDB.
// Все запросы прогона идут через одну сессию: USE действует на сессию.
type MySQLSource struct {
	db   *sql.DB
	conn *sql.Conn
}

// NewMySQLSource подключается к серверу и закрепляет сессию
func NewMySQLSource(ctx context.Context, cfg Config) (*MySQLSource, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open source connection: %w", err)
	}

	var src *MySQLSource
	err = Retry(ctx, DefaultRetryConfig(), "source connect", func() error {
		var connErr error
		src, connErr = NewMySQLSourceFromDB(ctx, db)
		return connErr
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logging.Logger.Info("Connected to source server", "host", cfg.Host, "port", cfg.Port, "user", cfg.User)
	return src, nil
}

// NewMySQLSourceFromDB закрепляет сессию на уже открытом пуле.
// Источник становится владельцем пула и закрывает его в Close.
func NewMySQLSourceFromDB(ctx context.Context, db *sql.DB) (*MySQLSource, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire source session: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping source server: %w", err)
	}
	return &MySQLSource{db: db, conn: conn}, nil
}

// Close освобождает сессию и пул
func (s *MySQLSource) Close() error {
	return errors.Join(s.conn.Close(), s.db.Close())
}

// DiscoverPartitions возвращает схемы заданий в порядке сервера
func (s *MySQLSource) DiscoverPartitions(ctx context.Context) ([]models.PartitionHandle, error) {
	rows, err := s.conn.QueryContext(ctx, discoverPartitionsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list job schemas: %w", err)
	}
	defer rows.Close()

	var partitions []models.PartitionHandle
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan job schema name: %w", err)
		}
		if !strings.HasPrefix(name, PartitionPrefix) {
			continue
		}
		partitions = append(partitions, models.PartitionHandle{Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list job schemas: %w", err)
	}

	logging.Logger.Info("Discovered job schemas", "count", len(partitions))
	return partitions, nil
}

// FetchBiases читает калибровки партиции
func (s *MySQLSource) FetchBiases(ctx context.Context, partition models.PartitionHandle) ([]models.RawBiasRow, error) {
	if err := s.use(ctx, partition); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, biasesQuery)
	if err != nil {
		return nil, fmt.Errorf("partition %s: biases query: %w", partition.Name, err)
	}
	defer rows.Close()

	var result []models.RawBiasRow
	for rows.Next() {
		var (
			radar, mode                            sql.NullString
			timeBias, rangeBias, rangeGain, azBias sql.NullFloat64
			rangeNoise, azNoise, eccVal, eccAng    sql.NullFloat64
		)
		if err := rows.Scan(&radar, &mode, &timeBias, &rangeBias, &rangeGain, &azBias,
			&rangeNoise, &azNoise, &eccVal, &eccAng); err != nil {
			return nil, fmt.Errorf("partition %s: scan bias row: %w", partition.Name, err)
		}
		result = append(result, models.RawBiasRow{
			RadarName:       stringPtr(radar),
			AntennaType:     stringPtr(mode),
			TimeBias:        floatPtr(timeBias),
			RangeBias:       floatPtr(rangeBias),
			RangeGain:       floatPtr(rangeGain),
			AzimuthBias:     floatPtr(azBias),
			RangeNoise:      floatPtr(rangeNoise),
			AzimuthNoise:    floatPtr(azNoise),
			EccentricityVal: floatPtr(eccVal),
			EccentricityAng: floatPtr(eccAng),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("partition %s: biases query: %w", partition.Name, err)
	}

	return result, nil
}

// FetchDetectionRates читает вероятности обнаружения партиции
func (s *MySQLSource) FetchDetectionRates(ctx context.Context, partition models.PartitionHandle) ([]models.RawDetectionRateRow, error) {
	if err := s.use(ctx, partition); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, detectionRatesQuery)
	if err != nil {
		return nil, fmt.Errorf("partition %s: detection rates query: %w", partition.Name, err)
	}
	defer rows.Close()

	var result []models.RawDetectionRateRow
	for rows.Next() {
		var (
			name                      sql.NullString
			dsType                    sql.NullInt64
			pdP, pdS, pdM, pdPS, pdPM sql.NullFloat64
		)
		if err := rows.Scan(&name, &dsType, &pdP, &pdS, &pdM, &pdPS, &pdPM); err != nil {
			return nil, fmt.Errorf("partition %s: scan detection rate row: %w", partition.Name, err)
		}
		result = append(result, models.RawDetectionRateRow{
			SourceName: stringPtr(name),
			SourceType: intPtr(dsType),
			PdP:        floatPtr(pdP),
			PdS:        floatPtr(pdS),
			PdM:        floatPtr(pdM),
			PdPS:       floatPtr(pdPS),
			PdPM:       floatPtr(pdPM),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("partition %s: detection rates query: %w", partition.Name, err)
	}

	return result, nil
}

func (s *MySQLSource) use(ctx context.Context, partition models.PartitionHandle) error {
	if partition.Name == "" {
		return errors.New("empty partition name")
	}
	if _, err := s.conn.ExecContext(ctx, "USE "+quoteIdentifier(partition.Name)); err != nil {
		return fmt.Errorf("partition %s: switch schema: %w", partition.Name, err)
	}
	return nil
}

// quoteIdentifier экранирует имя схемы обратными кавычками
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
