package source

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rqmstats/internal/domain/models"
)

func newMockSource(t *testing.T) (*MySQLSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	src, err := NewMySQLSourceFromDB(context.Background(), db)
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		assert.NoError(t, src.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return src, mock
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "radar-db.local", Port: 3307, User: "rqm", Password: "p@ss", Timeout: 5 * time.Second}

	parsed, err := mysql.ParseDSN(cfg.DSN())
	require.NoError(t, err)
	assert.Equal(t, "tcp", parsed.Net)
	assert.Equal(t, "radar-db.local:3307", parsed.Addr)
	assert.Equal(t, "rqm", parsed.User)
	assert.Equal(t, "p@ss", parsed.Passwd)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
	assert.Empty(t, parsed.DBName)
}

func TestConfig_DSN_ReadTimeout(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		wantTimeout time.Duration
		wantRead    time.Duration
	}{
		{
			name:        "connect timeout does not limit reads",
			cfg:         Config{Host: "h", Port: 3306, User: "u", Timeout: 10 * time.Second},
			wantTimeout: 10 * time.Second,
			wantRead:    0,
		},
		{
			name:        "explicit read timeout",
			cfg:         Config{Host: "h", Port: 3306, User: "u", Timeout: 10 * time.Second, ReadTimeout: 2 * time.Minute},
			wantTimeout: 10 * time.Second,
			wantRead:    2 * time.Minute,
		},
		{
			name: "no timeouts",
			cfg:  Config{Host: "h", Port: 3306, User: "u"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := tt.cfg.DSN()
			parsed, err := mysql.ParseDSN(dsn)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTimeout, parsed.Timeout)
			assert.Equal(t, tt.wantRead, parsed.ReadTimeout)
			if tt.wantRead == 0 {
				assert.NotContains(t, dsn, "readTimeout")
			}
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "`job_verifsassuser_1`", quoteIdentifier("job_verifsassuser_1"))
	assert.Equal(t, "`we``ird`", quoteIdentifier("we`ird"))
}

func TestDiscoverPartitions(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta(discoverPartitionsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"Database (job\\_verifsassuser\\_%)"}).
			AddRow("job_verifsassuser_10").
			AddRow("job_verifsassuser_2").
			AddRow("jobXverifsassuser_3"))

	partitions, err := src.DiscoverPartitions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.PartitionHandle{
		{Name: "job_verifsassuser_10"},
		{Name: "job_verifsassuser_2"},
	}, partitions)
}

func TestDiscoverPartitions_Error(t *testing.T) {
	src, mock := newMockSource(t)

	mock.ExpectQuery(regexp.QuoteMeta(discoverPartitionsQuery)).
		WillReturnError(errors.New("access denied"))

	_, err := src.DiscoverPartitions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestFetchBiases(t *testing.T) {
	src, mock := newMockSource(t)
	p := models.PartitionHandle{Name: "job_verifsassuser_1"}

	mock.ExpectExec(regexp.QuoteMeta("USE `job_verifsassuser_1`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM AN_RADAR_BIASES b")).
		WillReturnRows(sqlmock.NewRows([]string{
			"DS_NAME", "RADAR_MODE", "TIME_OFFSET_CALC_S", "RANGE_BIAS_CALC_M", "RANGE_GAIN_CALC",
			"AZIMUTH_BIAS_CALC_DEG", "RANGE_ERROR_SD_CALC_M", "AZIMUTH_ERROR_SD_CALC_DEG",
			"ECC_VALUE_CALC_DEG", "ECC_ANGLE_CALC_DEG",
		}).
			AddRow("R1", "PSR", 0.0, 12.345678, 1.05, nil, 35.2, 0.08, nil, nil).
			AddRow("R2", nil, nil, nil, nil, nil, nil, nil, nil, nil))

	rows, err := src.FetchBiases(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	r1 := rows[0]
	require.NotNil(t, r1.RadarName)
	assert.Equal(t, "R1", *r1.RadarName)
	require.NotNil(t, r1.TimeBias)
	assert.Equal(t, 0.0, *r1.TimeBias)
	require.NotNil(t, r1.RangeGain)
	assert.Equal(t, 1.05, *r1.RangeGain)
	assert.Nil(t, r1.AzimuthBias)
	require.NotNil(t, r1.RangeNoise)
	assert.Equal(t, 35.2, *r1.RangeNoise)
	assert.Nil(t, r1.EccentricityAng)

	r2 := rows[1]
	assert.Nil(t, r2.AntennaType)
	assert.Nil(t, r2.RangeGain)
}

func TestFetchDetectionRates(t *testing.T) {
	src, mock := newMockSource(t)
	p := models.PartitionHandle{Name: "job_verifsassuser_1"}

	mock.ExpectExec(regexp.QuoteMeta("USE `job_verifsassuser_1`")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM an_tr_rt_associations tra")).
		WillReturnRows(sqlmock.NewRows([]string{"ds_name", "ds_type", "pdP", "pdS", "pdM", "pdPS", "pdPM"}).
			AddRow("R1", int64(3), 97.5, 100.0, nil, 0.0, nil))

	rows, err := src.FetchDetectionRates(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	require.NotNil(t, r.SourceType)
	assert.Equal(t, int64(3), *r.SourceType)
	require.NotNil(t, r.PdP)
	assert.Equal(t, 97.5, *r.PdP)
	assert.Nil(t, r.PdM)
	require.NotNil(t, r.PdPS)
	assert.Equal(t, 0.0, *r.PdPS)
	assert.Nil(t, r.PdPM)
}

func TestFetch_ErrorsNamePartition(t *testing.T) {
	t.Run("use fails", func(t *testing.T) {
		src, mock := newMockSource(t)
		mock.ExpectExec(regexp.QuoteMeta("USE `job_verifsassuser_9`")).
			WillReturnError(errors.New("Unknown database"))

		_, err := src.FetchBiases(context.Background(), models.PartitionHandle{Name: "job_verifsassuser_9"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "job_verifsassuser_9")
	})

	t.Run("query fails", func(t *testing.T) {
		src, mock := newMockSource(t)
		mock.ExpectExec(regexp.QuoteMeta("USE `job_verifsassuser_4`")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM an_tr_rt_associations tra")).
			WillReturnError(errors.New("Lost connection to MySQL server"))

		_, err := src.FetchDetectionRates(context.Background(), models.PartitionHandle{Name: "job_verifsassuser_4"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "job_verifsassuser_4")
		assert.Contains(t, err.Error(), "Lost connection")
	})

	t.Run("empty name", func(t *testing.T) {
		src, _ := newMockSource(t)
		_, err := src.FetchBiases(context.Background(), models.PartitionHandle{})
		assert.Error(t, err)
	})
}
