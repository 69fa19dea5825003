package controllers

import (
	"errors"
	"net/http"

	"bookstore-backend/cart"
	"bookstore-backend/pricing"
	"bookstore-backend/store"

	"github.com/gin-gonic/gin"
)

type cartLineRequest struct {
	Product  string `json:"product" binding:"required,objectid"`
	Quantity int    `json:"quantity"`
}

type favoriteRequest struct {
	Product string `json:"product" binding:"required,objectid"`
}

type syncCartRequest struct {
	CartItems     []cartLineRequest `json:"cartItems" binding:"dive"`
	FavoriteItems []favoriteRequest `json:"favoriteItems" binding:"dive"`
}

// SyncCart rebuilds the browser's cart and favorites from live products.
// Deleted products are dropped from both lists; sold out ones leave the cart.
// Quantities are clamped to the current stock.
func (h *Handler) SyncCart(ctx *gin.Context) {
	var req syncCartRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}

	rctx := ctx.Request.Context()
	c := cart.Cart{Items: []cart.Item{}}
	favs := cart.Favorites{Items: []cart.Item{}}
	removed := []string{}

	for _, line := range req.CartItems {
		id, _ := store.ParseID(line.Product)
		product, err := h.loadProduct(rctx, id)
		if errors.Is(err, store.ErrNotFound) {
			removed = append(removed, line.Product)
			continue
		}
		if err != nil {
			h.fail(ctx, err)
			return
		}
		if product.Stock < 1 {
			removed = append(removed, line.Product)
			continue
		}
		c.Add(cart.SnapshotFromProduct(*product, 1))
		c.UpdateQuantity(id, line.Quantity)
	}

	for _, fav := range req.FavoriteItems {
		id, _ := store.ParseID(fav.Product)
		product, err := h.loadProduct(rctx, id)
		if errors.Is(err, store.ErrNotFound) {
			removed = append(removed, fav.Product)
			continue
		}
		if err != nil {
			h.fail(ctx, err)
			return
		}
		favs.Add(cart.SnapshotFromProduct(*product, 0))
	}

	var quote pricing.Breakdown
	if len(c.Items) > 0 {
		quote = c.Quote()
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{
		"success":       true,
		"cartItems":     c.Items,
		"favoriteItems": favs.Items,
		"pricing":       quote,
		"removed":       removed,
	})
}
