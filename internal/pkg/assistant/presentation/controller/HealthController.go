package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cacheport "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/cache/port"
)

// HealthController reports liveness of the service and its state store.
type HealthController struct {
	cache cacheport.Cache
}

func NewHealthController(cache cacheport.Cache) *HealthController {
	return &HealthController{cache: cache}
}

func (c *HealthController) Handle() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if err := c.cache.Ping(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
