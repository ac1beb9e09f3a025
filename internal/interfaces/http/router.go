// Package http exposes the fragmentation service as a REST API.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfrag/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molfrag/internal/interfaces/http/handlers"
	"github.com/turtacn/molfrag/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	FragmentHandler *handlers.FragmentHandler
	HealthHandler   *handlers.HealthHandler

	Logger           logging.Logger
	Metrics          *prometheus.FragmentationMetrics
	MetricsCollector prometheus.MetricsCollector
	Logging          middleware.LoggingConfig
	MaxBodySize      int64
}

// NewRouter builds the gin engine: global middleware, health endpoints, /metrics and
// the /api/v1 group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logCfg := cfg.Logging
	if logCfg.SkipPaths == nil && logCfg.SlowThreshold == 0 {
		logCfg = middleware.DefaultLoggingConfig()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger, logCfg))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.BodyLimit(cfg.MaxBodySize))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	registerFragmentRoutes(api, cfg.FragmentHandler)

	return r
}

func registerFragmentRoutes(r *gin.RouterGroup, h *handlers.FragmentHandler) {
	if h == nil {
		return
	}
	r.POST("/fragments", h.Fragment)
	r.POST("/fragments/batch", h.FragmentBatch)
	r.GET("/rules", h.ListRules)
}
