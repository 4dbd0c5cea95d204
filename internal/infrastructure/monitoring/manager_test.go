package monitoring

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rqmstats/internal/domain/ingestion"
)

var _ ingestion.Recorder = (*Manager)(nil)

func TestManager_IngestionCounters(t *testing.T) {
	m := NewManager()

	m.PartitionFinished(ingestion.StatusCommitted)
	m.PartitionFinished(ingestion.StatusCommitted)
	m.PartitionFinished(ingestion.StatusSkippedDate)
	m.RecordsWritten(ingestion.TableBiases, 5)
	m.RecordsWritten(ingestion.TableDetectionRates, 3)
	m.RecordsWritten(ingestion.TableDetectionRates, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.partitions.WithLabelValues(ingestion.StatusCommitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.partitions.WithLabelValues(ingestion.StatusSkippedDate)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.records.WithLabelValues(ingestion.TableBiases)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.records.WithLabelValues(ingestion.TableDetectionRates)))
}

func TestManager_RunFinished(t *testing.T) {
	m := NewManager()
	at := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	m.RunFinished(at, 1500*time.Millisecond)

	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastRun))
	assert.InDelta(t, 1.5, testutil.ToFloat64(m.runDuration), 1e-9)
}

func TestManager_HTTPRequest(t *testing.T) {
	m := NewManager()

	m.HTTPRequest("GET", "/api/radars", 200, 10*time.Millisecond)
	m.HTTPRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/radars", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}

func TestManager_Handler(t *testing.T) {
	m := NewManager()
	m.PartitionFinished(ingestion.StatusCommitted)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rqm_ingest_partitions_total{outcome="committed"} 1`)
}

func TestManager_WriteTextfile(t *testing.T) {
	m := NewManager()
	m.RecordsWritten(ingestion.TableBiases, 7)

	path := filepath.Join(t.TempDir(), "rqm_ingest.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `rqm_ingest_records_total{table="biases"} 7`))

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
