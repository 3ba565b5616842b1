package controller

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	assistant "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/domain"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/usecase"
)

// WebhookController receives Instagram webhook deliveries. The platform
// retries on non-200 answers, so state-store failures return 503 and
// everything successfully routed answers EVENT_RECEIVED.
type WebhookController struct {
	ingest *usecase.IngestEventUseCase
	log    *slog.Logger
}

func NewWebhookController(ingest *usecase.IngestEventUseCase, log *slog.Logger) *WebhookController {
	return &WebhookController{ingest: ingest, log: log.With(sl.Module("webhook"))}
}

func (c *WebhookController) Handle() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var payload assistant.WebhookPayload
		if err := ctx.ShouldBindJSON(&payload); err != nil {
			ctx.String(http.StatusBadRequest, "INVALID_JSON")
			return
		}
		if payload.Object != "instagram" || len(payload.Entry) == 0 {
			ctx.String(http.StatusBadRequest, "INVALID_PAYLOAD")
			return
		}

		for _, entry := range payload.Entry {
			for _, event := range entry.Messaging {
				if err := c.ingest.Execute(ctx.Request.Context(), event); err != nil {
					c.log.Error("event ingest failed", sl.User(event.Sender.ID), sl.Err(err))
					if errors.Is(err, usecase.ErrPersistence) {
						ctx.String(http.StatusServiceUnavailable, "STORE_UNAVAILABLE")
						return
					}
					ctx.String(http.StatusInternalServerError, "INTERNAL_ERROR")
					return
				}
			}
		}
		ctx.String(http.StatusOK, "EVENT_RECEIVED")
	}
}
