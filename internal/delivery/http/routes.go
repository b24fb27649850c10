package http

import (
	"github.com/gin-gonic/gin"
	"github.com/listinglens/backend/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SetupRouter creates and configures the Gin router. gatherer backs the
// /metrics endpoint and may be nil to leave it out.
func SetupRouter(cfg *config.Config, handler *Handler, gatherer prometheus.Gatherer, logger logrus.FieldLogger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadSize

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(MetricsMiddleware(handler.metrics))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP, cfg.RateLimit.Burst))
	{
		v1.POST("/analyze", handler.AnalyzeImage)
		v1.POST("/analyze/batch", handler.AnalyzeBatch)

		listings := v1.Group("/listings")
		{
			listings.POST("/merge", handler.MergeDetails)
			listings.POST("/validate-details", handler.ValidateDetails)
			listings.POST("/enrich", handler.EnrichAnalysis)
			listings.POST("/generate", handler.GenerateListing)
			listings.POST("/regenerate", handler.RegenerateElement)
			listings.POST("/format", handler.FormatPost)
		}

		products := v1.Group("/products/cache")
		{
			products.GET("", handler.ListCachedProducts)
			products.POST("", handler.AddCachedProduct)
			products.DELETE("", handler.ClearCachedProducts)
		}
	}

	return router
}
