package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/techpath/content-pipeline/internal/logger"
)

// NewRouter builds the gin engine with all routes attached.
func NewRouter(handler *Handler, debug bool, log logger.Logger) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestLogger(log))
	router.Use(gin.Recovery())

	// Operational endpoints
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/jobs", handler.CuratedJobs)
		v1.GET("/resources", handler.CuratedResources)
		v1.GET("/content/:category", handler.GetContent)
		v1.GET("/catalog/:category", handler.ListCatalog)
		v1.POST("/share", handler.ShareContent)
	}

	return router
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("HTTP request",
			logger.String("method", method),
			logger.String("path", path),
			logger.Int("status_code", c.Writer.Status()),
			logger.String("client_ip", c.ClientIP()),
			logger.Duration("duration", time.Since(start)),
		)
	}
}
