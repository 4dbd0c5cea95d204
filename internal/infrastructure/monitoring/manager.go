package monitoring

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager собирает метрики загрузки срезов и HTTP API в собственном реестре Prometheus.
// Собственный реестр позволяет выгрузить метрики пакетного запуска в textfile
// без стандартных метрик процесса.
type Manager struct {
	reg *prometheus.Registry

	partitions   *prometheus.CounterVec
	records      *prometheus.CounterVec
	lastRun      prometheus.Gauge
	runDuration  prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewManager создает новый менеджер мониторинга
func NewManager() *Manager {
	r := prometheus.NewRegistry()

	partitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rqm_ingest_partitions_total",
		Help: "Partitions processed by ingestion runs, by outcome",
	}, []string{"outcome"})
	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rqm_ingest_records_total",
		Help: "Normalized records committed to the snapshot store, by table",
	}, []string{"table"})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rqm_ingest_last_run_timestamp_seconds",
		Help: "Unix time the last ingestion run finished",
	})
	runDuration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rqm_ingest_last_run_duration_seconds",
		Help: "Wall time of the last ingestion run",
	})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rqm_http_requests_total",
		Help: "HTTP requests served by the snapshot query API",
	}, []string{"method", "route", "status"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rqm_http_request_duration_seconds",
		Help:    "Latency of snapshot query API requests",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"route"})

	r.MustRegister(partitions, records, lastRun, runDuration, httpRequests, httpLatency)

	return &Manager{
		reg:          r,
		partitions:   partitions,
		records:      records,
		lastRun:      lastRun,
		runDuration:  runDuration,
		httpRequests: httpRequests,
		httpLatency:  httpLatency,
	}
}

// PartitionFinished учитывает партицию с заданным исходом
func (m *Manager) PartitionFinished(outcome string) {
	m.partitions.WithLabelValues(outcome).Inc()
}

// RecordsWritten учитывает записанные строки таблицы
func (m *Manager) RecordsWritten(table string, n int) {
	if n <= 0 {
		return
	}
	m.records.WithLabelValues(table).Add(float64(n))
}

// RunFinished фиксирует время окончания и длительность прогона
func (m *Manager) RunFinished(at time.Time, duration time.Duration) {
	m.lastRun.Set(float64(at.Unix()))
	m.runDuration.Set(duration.Seconds())
}

// HTTPRequest учитывает обработанный HTTP запрос.
// route должен быть шаблоном маршрута, а не фактическим путем.
func (m *Manager) HTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler возвращает HTTP обработчик /metrics
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteTextfile записывает текущие значения в файл формата textfile collector
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
