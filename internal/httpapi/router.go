package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", h.Health)
	r.GET("/prices", h.ListPrices)
	r.GET("/prices/:symbol", h.GetPrice)
	r.GET("/subscriptions", h.ListSubscriptions)
	r.POST("/subscriptions", h.AddSubscriptions)
	r.DELETE("/subscriptions/:symbol", h.RemoveSubscription)
	r.POST("/pnl", h.PnL)
	r.GET("/stats", h.Stats)
	r.GET("/version", h.Version)

	return r
}

// requestLogger logs each request at debug level.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
