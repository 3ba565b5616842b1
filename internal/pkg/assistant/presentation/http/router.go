package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/presentation/controller"
)

// RegisterRoutes mounts the webhook surface on the engine.
func RegisterRoutes(r *gin.Engine, webhook *controller.WebhookController, verify *controller.VerifyController, health *controller.HealthController) {
	r.GET("/", func(ctx *gin.Context) {
		ctx.String(nethttp.StatusOK, "Instagram DM assistant")
	})
	r.GET("/webhook", verify.Handle())
	r.POST("/webhook", webhook.Handle())
	r.GET("/health", health.Handle())
}
