package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/infrastructure/logger"
	"github.com/resell/backoffice/internal/infrastructure/persistence"
	"github.com/resell/backoffice/internal/interfaces/http/handler"
)

// Handlers bundles every HTTP handler the router mounts
type Handlers struct {
	Sync     *handler.SyncHandler
	Order    *handler.OrderHandler
	Category *handler.CategoryHandler
}

// New builds the gin engine with middleware and all routes
func New(log *zap.Logger, db *persistence.Database, h Handlers) *gin.Engine {
	engine := gin.New()
	engine.Use(
		logger.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
	)

	engine.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "down"})
			return
		}
		c.JSON(200, gin.H{"status": "up"})
	})

	v1 := engine.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			sync.POST("/trigger", h.Sync.Trigger)
			sync.GET("/status", h.Sync.Status)
			sync.GET("/logs", h.Sync.Logs)
			sync.PUT("/config", h.Sync.UpdateConfig)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("/pending-items", h.Order.PendingItems)
			orders.POST("/rematch", h.Order.Rematch)
			orders.POST("/lines/:lineID/resolve", h.Order.ResolveLine)
			orders.POST("/:id/fulfill", h.Order.Fulfill)
		}

		categories := v1.Group("/categories")
		{
			categories.GET("/mappings", h.Category.List)
			categories.GET("/mappings/lookup", h.Category.Lookup)
		}
	}

	return engine
}
