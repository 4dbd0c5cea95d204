package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rqmstats/database"
	"rqmstats/internal/domain/models"
	"rqmstats/normalization"
	apperrors "rqmstats/server/errors"
	"rqmstats/server/middleware"
)

// SnapshotStore чтение хранилища срезов
type SnapshotStore interface {
	ListRadars(ctx context.Context) ([]string, error)
	ListJobDates(ctx context.Context) ([]string, error)
	GetBiasesByRadar(ctx context.Context, radar string) ([]models.BiasRecord, error)
	GetDetectionRatesByRadar(ctx context.Context, radar string) ([]models.DetectionRateRecord, error)
	GetComparisonSeries(ctx context.Context, stat string) ([]models.SeriesPoint, error)
	GetDetectionRatesBetween(ctx context.Context, from, to models.JobDate) ([]models.DetectionRateRecord, error)
	GetStoreStats(ctx context.Context) (*models.StoreStats, error)
}

// SnapshotHandler обработчики API срезов (только чтение)
type SnapshotHandler struct {
	store SnapshotStore
}

// NewSnapshotHandler создает обработчик
func NewSnapshotHandler(store SnapshotStore) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

// RegisterRoutes регистрирует маршруты в группе /api
func (h *SnapshotHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/health", h.HandleHealth)
	api.GET("/radars", h.HandleListRadars)
	api.GET("/job-dates", h.HandleListJobDates)
	api.GET("/radars/:radar/biases", h.HandleRadarBiases)
	api.GET("/radars/:radar/detection-rates", h.HandleRadarDetectionRates)
	api.GET("/comparison", h.HandleComparisonStats)
	api.GET("/comparison/:stat", h.HandleComparison)
	api.GET("/detection-rates", h.HandleDetectionRatesBetween)
	api.GET("/stats", h.HandleStats)
}

// HandleHealth проверка доступности
func (h *SnapshotHandler) HandleHealth(c *gin.Context) {
	SendJSONResponse(c, http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleListRadars GET /api/radars
func (h *SnapshotHandler) HandleListRadars(c *gin.Context) {
	radars, err := h.store.ListRadars(c.Request.Context())
	if err != nil {
		middleware.GinHandleError(c, apperrors.NewInternalError("failed to list radars", err))
		return
	}
	SendJSONResponse(c, http.StatusOK, newListResponse(radars))
}

// HandleListJobDates GET /api/job-dates
func (h *SnapshotHandler) HandleListJobDates(c *gin.Context) {
	dates, err := h.store.ListJobDates(c.Request.Context())
	if err != nil {
		middleware.GinHandleError(c, apperrors.NewInternalError("failed to list job dates", err))
		return
	}
	SendJSONResponse(c, http.StatusOK, newListResponse(dates))
}

// HandleRadarBiases GET /api/radars/:radar/biases
func (h *SnapshotHandler) HandleRadarBiases(c *gin.Context) {
	radar := c.Param("radar")
	records, err := h.store.GetBiasesByRadar(c.Request.Context(), radar)
	if err != nil {
		middleware.GinHandleError(c, apperrors.NewInternalError("failed to get biases", err).WithContext(radar))
		return
	}
	SendJSONResponse(c, http.StatusOK, newListResponse(records))
}

// HandleRadarDetectionRates GET /api/radars/:radar/detection-rates
func (h *SnapshotHandler) HandleRadarDetectionRates(c *gin.Context) {
	radar := c.Param("radar")
	records, err := h.store.GetDetectionRatesByRadar(c.Request.Context(), radar)
	if err != nil {
		middleware.GinHandleError(c, apperrors.NewInternalError("failed to get detection rates", err).WithContext(radar))
		return
	}
	SendJSONResponse(c, http.StatusOK, newListResponse(records))
}

// HandleComparisonStats GET /api/comparison - список доступных статистик
func (h *SnapshotHandler) HandleComparisonStats(c *gin.Context) {
	SendJSONResponse(c, http.StatusOK, newListResponse(database.ComparisonStats()))
}

// HandleComparison GET /api/comparison/:stat
func (h *SnapshotHandler) HandleComparison(c *gin.Context) {
	stat := c.Param("stat")
	points, err := h.store.GetComparisonSeries(c.Request.Context(), stat)
	if err != nil {
		if errors.Is(err, database.ErrUnknownStat) {
			middleware.GinHandleError(c, apperrors.NewValidationError("unknown stat: "+stat, err))
			return
		}
		middleware.GinHandleError(c, apperrors.NewInternalError("failed to get comparison series", err).WithContext(stat))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stat":   stat,
		"count":  len(points),
		"points": points,
	})
}

// HandleDetectionRatesBetween GET /api/detection-rates?from=dd/mm/yyyy&to=dd/mm/yyyy
func (h *SnapshotHandler) HandleDetectionRatesBetween(c *gin.Context) {
	from, err := normalization.ParseJobDate(c.Query("from"))
	if err != nil {
		middleware.GinHandleError(c, apperrors.NewValidationError("invalid 'from' date, expected dd/mm/yyyy", err))
		return
	}
	to, err := normalization.ParseJobDate(c.Query("to"))
	if err != nil {
		middleware.GinHandleError(c, apperrors.NewValidationError("invalid 'to' date, expected dd/mm/yyyy", err))
		return
	}
	if to.Before(from) {
		middleware.GinHandleError(c, apperrors.NewValidationError("'to' date is before 'from' date", nil))
		return
	}

	records, err := h.store.GetDetectionRatesBetween(c.Request.Context(), from, to)
	if err != nil {
		middleware.GinHandleError(c, apperrors.NewInternalError("failed to get detection rates", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":  from.String(),
		"to":    to.String(),
		"count": len(records),
		"items": records,
	})
}

// HandleStats GET /api/stats
func (h *SnapshotHandler) HandleStats(c *gin.Context) {
	stats, err := h.store.GetStoreStats(c.Request.Context())
	if err != nil {
		middleware.GinHandleError(c, apperrors.NewInternalError("failed to collect stats", err))
		return
	}
	SendJSONResponse(c, http.StatusOK, stats)
}
