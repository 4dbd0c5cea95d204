package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"rqmstats/internal/config"
	"rqmstats/internal/infrastructure/monitoring"
	"rqmstats/server/handlers"
	"rqmstats/server/middleware"
)

// Server HTTP API для чтения хранилища срезов
type Server struct {
	config   config.ServerConfig
	store    handlers.SnapshotStore
	metrics  *monitoring.Manager
	snapshot *handlers.SnapshotHandler

	handlerOnce sync.Once
	handler     http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer создает сервер. metrics может быть nil: тогда /metrics не регистрируется.
func NewServer(cfg config.ServerConfig, store handlers.SnapshotStore, metrics *monitoring.Manager) *Server {
	return &Server{
		config:   cfg,
		store:    store,
		metrics:  metrics,
		snapshot: handlers.NewSnapshotHandler(store),
	}
}

// Handler возвращает HTTP handler сервера, создавая его при первом вызове
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.handler = s.buildHTTPHandler()
	})
	return s.handler
}

func (s *Server) buildHTTPHandler() http.Handler {
	// Режим можно переопределить через переменную окружения GIN_MODE
	if ginMode := os.Getenv("GIN_MODE"); ginMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.GinRequestIDMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinLoggerMiddleware())
	if s.metrics != nil {
		router.Use(middleware.GinMetricsMiddleware(s.metrics))
	}
	router.Use(middleware.GinGzipMiddleware())

	api := router.Group("/api")
	api.Use(middleware.GinRateLimitMiddleware(s.config.RateLimitPerSec, s.config.RateLimitBurst))
	s.snapshot.RegisterRoutes(api)

	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, middleware.ErrorResponse{
			Error:     "Not found",
			Timestamp: time.Now().Format(time.RFC3339),
			RequestID: middleware.GetRequestIDFromGin(c),
		})
	})

	return router
}

// ServeHTTP реализует http.Handler для тестов и вспомогательных утилит
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

// Start запускает HTTP сервер и блокируется до остановки
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	slog.Info("Starting HTTP server", "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server on %s: %w", srv.Addr, err)
	}
	return nil
}

// Shutdown останавливает HTTP сервер gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	slog.Info("Initiating graceful shutdown")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
