package controllers

import (
	"net/http"

	"bookstore-backend/middlewares"
	"bookstore-backend/models"
	"bookstore-backend/store"

	"github.com/gin-gonic/gin"
)

type reviewRequest struct {
	Rating    float64 `json:"rating" binding:"required,gte=1,lte=5"`
	Comment   string  `json:"comment"`
	ProductID string  `json:"productId" binding:"required,objectid"`
}

// PutReview creates the caller's review of a product or replaces the one
// they already wrote.
func (h *Handler) PutReview(ctx *gin.Context) {
	var req reviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	productID, err := store.ParseID(req.ProductID)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	user := middlewares.CurrentUser(ctx)
	rctx := ctx.Request.Context()
	product, err := h.Store.UpsertReview(rctx, productID, models.Review{
		User:    user.ID,
		Name:    user.Name,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		h.fail(ctx, err)
		return
	}
	h.Cache.Invalidate(rctx, productID)
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "ratings": product.Ratings, "numOfReviews": product.NumOfReviews})
}

func (h *Handler) GetReviews(ctx *gin.Context) {
	id, ok := queryID(ctx, "id")
	if !ok {
		return
	}
	product, err := h.loadProduct(ctx.Request.Context(), id)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	reviews := product.Reviews
	if reviews == nil {
		reviews = []models.Review{}
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "reviews": reviews})
}

// DeleteReview lets the author or an admin remove a review.
func (h *Handler) DeleteReview(ctx *gin.Context) {
	productID, ok := queryID(ctx, "productId")
	if !ok {
		return
	}
	reviewID, ok := queryID(ctx, "id")
	if !ok {
		return
	}

	rctx := ctx.Request.Context()
	product, err := h.Store.GetProduct(rctx, productID)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	var review *models.Review
	for i := range product.Reviews {
		if product.Reviews[i].ID == reviewID {
			review = &product.Reviews[i]
			break
		}
	}
	if review == nil {
		sendErrorResponse(ctx, http.StatusNotFound, "Review not found with id: "+reviewID.Hex())
		return
	}
	user := middlewares.CurrentUser(ctx)
	if review.User != user.ID && user.Role != models.RoleAdmin {
		sendErrorResponse(ctx, http.StatusForbidden, "You can only delete your own review")
		return
	}

	if _, err := h.Store.DeleteReview(rctx, productID, reviewID); err != nil {
		h.fail(ctx, err)
		return
	}
	h.Cache.Invalidate(rctx, productID)
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true})
}
