package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nakedpantry/backend/config"
	"github.com/nakedpantry/backend/internal/logger"
	"github.com/nakedpantry/backend/internal/metrics"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log logger.Logger, m *metrics.Metrics) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(MetricsMiddleware(m))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		nova := v1.Group("/nova")
		{
			nova.POST("/classify", handler.ClassifyIngredients)
		}

		foods := v1.Group("/foods")
		{
			foods.GET("/:id/related", handler.GetRelatedFoods)
		}

		aisles := v1.Group("/aisles")
		{
			aisles.GET("", handler.GetAisles)
			aisles.GET("/:id/foods", handler.GetAisleFoods)
			aisles.DELETE("/cache", handler.InvalidateAisleCache)
		}
	}

	return router
}
