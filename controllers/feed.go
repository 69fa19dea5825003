package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OrderFeed upgrades an admin's connection to the live order stream.
func (h *Handler) OrderFeed(ctx *gin.Context) {
	if h.Feed == nil {
		sendErrorResponse(ctx, http.StatusServiceUnavailable, "Order feed is not running")
		return
	}
	h.Feed.ServeWS(ctx.Writer, ctx.Request)
}
