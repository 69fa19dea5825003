package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type processPaymentRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// ProcessPayment creates a payment intent for an amount in minor units. The
// browser confirms it against the processor with the returned secret.
func (h *Handler) ProcessPayment(ctx *gin.Context) {
	var req processPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	if h.Payments == nil {
		h.fail(ctx, errors.New("payment processor is not configured"))
		return
	}

	intent, err := h.Payments.CreateIntent(ctx.Request.Context(), req.Amount, h.Config.PaymentCurrency, map[string]string{
		"company": "Ecommerce",
	})
	if err != nil {
		h.fail(ctx, err)
		return
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "client_secret": intent.ClientSecret})
}

func (h *Handler) StripeAPIKey(ctx *gin.Context) {
	sendJSONResponse(ctx, http.StatusOK, gin.H{"stripeApiKey": h.Config.StripePublishableKey})
}
