package controller

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// VerifyController answers the Meta webhook subscription handshake.
type VerifyController struct {
	verifyToken string
}

func NewVerifyController() *VerifyController {
	return &VerifyController{verifyToken: os.Getenv("WEBHOOK_VERIFY_TOKEN")}
}

func (c *VerifyController) Handle() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		mode := ctx.Query("hub.mode")
		token := ctx.Query("hub.verify_token")
		challenge := ctx.Query("hub.challenge")

		if mode == "subscribe" && token == c.verifyToken && challenge != "" {
			ctx.String(http.StatusOK, challenge)
			return
		}
		ctx.String(http.StatusForbidden, "VERIFICATION_FAILED")
	}
}
