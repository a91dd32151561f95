package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// SetupRoutes registers the health check and v1 API routes.
func SetupRoutes(router *gin.Engine, handler *Handler, db, redis HealthChecker) {
	router.GET("/health", healthCheck(db, redis))

	v1 := router.Group("/api/v1")
	{
		decisions := v1.Group("/decisions")
		{
			decisions.GET("", handler.GetDecisions)
			decisions.GET("/:symbol", handler.GetDecisionsBySymbol)
		}

		v1.GET("/stats", handler.GetStats)
		v1.POST("/outcomes", handler.PostOutcome)

		cal := v1.Group("/calibration")
		{
			cal.GET("", handler.GetCalibration)
			cal.POST("/refit", handler.RefitCalibration)
			cal.POST("/reload", handler.ReloadCalibration)
		}
	}
}

func healthCheck(db, redis HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}
		if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, response)
	}
}
