package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hmiyata/battrack/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(inventory *handlers.InventoryHandler, stocktake *handlers.StocktakeHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api/v1")
	{
		api.POST("/intake/preview", inventory.PreviewIntake)
		api.POST("/intake", inventory.Intake)
		api.POST("/returns", inventory.CompleteReturns)
		api.POST("/units/deploy", inventory.Deploy)
		api.POST("/units/archive", inventory.Archive)
		api.POST("/adjustments", inventory.AddAdjustment)
		api.GET("/inventory", inventory.List)
		api.GET("/inventory/search", inventory.Search)
		api.GET("/reports/weekly", inventory.WeeklyReport)
		api.GET("/reports/pickup", inventory.PickupReport)
		api.GET("/reports/snapshots", inventory.SnapshotHistory)

		api.POST("/stocktake/buffer", stocktake.AddToBuffer)
		api.DELETE("/stocktake/buffer", stocktake.ClearBuffer)
		api.POST("/stocktake/run", stocktake.Run)
		api.POST("/stocktake/apply", stocktake.Apply)
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
