package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"bookstore-backend/feed"
	"bookstore-backend/middlewares"
	"bookstore-backend/models"
	"bookstore-backend/payment"
	"bookstore-backend/pricing"
	"bookstore-backend/store"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type orderItemRequest struct {
	Product  string  `json:"product" binding:"required,objectid"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
}

type newOrderRequest struct {
	ShippingInfo  models.ShippingInfo `json:"shippingInfo" binding:"required"`
	OrderItems    []orderItemRequest  `json:"orderItems" binding:"required,min=1,dive"`
	PaymentInfo   models.PaymentInfo  `json:"paymentInfo" binding:"required"`
	ItemsPrice    *float64            `json:"itemsPrice"`
	TaxPrice      *float64            `json:"taxPrice"`
	ShippingPrice *float64            `json:"shippingPrice"`
	TotalPrice    *float64            `json:"totalPrice" binding:"required"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(items []orderItemRequest) ([]models.OrderItem, error) {
	merged := make([]models.OrderItem, 0, len(items))
	index := make(map[primitive.ObjectID]int, len(items))
	for _, it := range items {
		id, err := store.ParseID(it.Product)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, it.Product)
		}
		if i, ok := index[id]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[id] = len(merged)
		merged = append(merged, models.OrderItem{Product: id, Image: it.Image, Quantity: it.Quantity})
	}
	return merged, nil
}

func orderLines(items []models.OrderItem) []pricing.Line {
	lines := make([]pricing.Line, len(items))
	for i, it := range items {
		lines[i] = pricing.Line{Price: it.Price, Quantity: it.Quantity}
	}
	return lines
}

// checkClientTotals compares what the client displayed against the server quote.
func checkClientTotals(req *newOrderRequest, quote pricing.Breakdown) error {
	checks := []struct {
		name   string
		client *float64
		server float64
	}{
		{"itemsPrice", req.ItemsPrice, quote.ItemsPrice},
		{"taxPrice", req.TaxPrice, quote.TaxPrice},
		{"shippingPrice", req.ShippingPrice, quote.ShippingPrice},
		{"totalPrice", req.TotalPrice, quote.TotalPrice},
	}
	for _, c := range checks {
		if c.client != nil && !pricing.Matches(*c.client, c.server) {
			return fmt.Errorf("%s mismatch: submitted %.2f, expected %.2f", c.name, *c.client, c.server)
		}
	}
	return nil
}

func (h *Handler) verifyPayment(ctx context.Context, intentID string, total float64) (int, error) {
	if h.Payments == nil {
		return 0, nil
	}
	intent, err := h.Payments.GetIntent(ctx, intentID)
	if err != nil {
		return http.StatusInternalServerError, err
	}
	if !strings.EqualFold(intent.Currency, h.Config.PaymentCurrency) {
		return http.StatusBadRequest, fmt.Errorf("payment %s is in %s, orders are paid in %s", intentID, intent.Currency, h.Config.PaymentCurrency)
	}
	if intent.Status != payment.StatusSucceeded {
		return http.StatusBadRequest, fmt.Errorf("payment %s is %s", intentID, intent.Status)
	}
	if intent.Amount != pricing.MinorUnits(total) {
		return http.StatusBadRequest, fmt.Errorf("payment %s amount %d does not match order total %d", intentID, intent.Amount, pricing.MinorUnits(total))
	}
	return 0, nil
}

// reserveStock decrements every line or none of them.
func (h *Handler) reserveStock(ctx context.Context, items []models.OrderItem) error {
	for i, it := range items {
		if err := h.Store.DecrementStock(ctx, it.Product, it.Quantity); err != nil {
			h.restoreStock(ctx, items[:i])
			return err
		}
	}
	return nil
}

// restoreStock puts quantities back. It runs detached from the request so a
// client disconnect cannot leave stock half restored.
func (h *Handler) restoreStock(ctx context.Context, items []models.OrderItem) {
	ctx = context.WithoutCancel(ctx)
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, it := range items {
		err := h.Store.IncrementStock(ctx, it.Product, it.Quantity)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.Logger.Error("restoring stock failed", "product", it.Product.Hex(), "quantity", it.Quantity, "error", err)
		}
		ids = append(ids, it.Product)
	}
	h.Cache.Invalidate(ctx, ids...)
}

func (h *Handler) NewOrder(ctx *gin.Context) {
	var req newOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	items, err := mergeLines(req.OrderItems)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	rctx := ctx.Request.Context()
	for i := range items {
		product, err := h.Store.GetProduct(rctx, items[i].Product)
		if err != nil {
			h.fail(ctx, err)
			return
		}
		items[i].Name = product.Name
		items[i].Price = product.Price
		if img := product.FirstImageURL(); img != "" {
			items[i].Image = img
		}
	}

	quote := pricing.Quote(orderLines(items))
	if err := checkClientTotals(&req, quote); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	if status, err := h.verifyPayment(rctx, req.PaymentInfo.ID, quote.TotalPrice); err != nil {
		h.Logger.Warn("payment verification failed", "payment", req.PaymentInfo.ID, "error", err)
		sendErrorResponse(ctx, status, err.Error())
		return
	}

	if err := h.reserveStock(rctx, items); err != nil {
		h.fail(ctx, err)
		return
	}

	now := h.Now()
	order := &models.Order{
		User:          middlewares.CurrentUser(ctx).ID,
		ShippingInfo:  req.ShippingInfo,
		OrderItems:    items,
		PaymentInfo:   req.PaymentInfo,
		ItemsPrice:    quote.ItemsPrice,
		TaxPrice:      quote.TaxPrice,
		ShippingPrice: quote.ShippingPrice,
		TotalPrice:    quote.TotalPrice,
		OrderStatus:   models.StatusProcessing,
		PaidAt:        now,
		CreatedAt:     now,
	}
	if err := h.Store.CreateOrder(rctx, order); err != nil {
		h.restoreStock(rctx, items)
		h.fail(ctx, err)
		return
	}

	ids := make([]primitive.ObjectID, len(items))
	for i, it := range items {
		ids[i] = it.Product
	}
	h.Cache.Invalidate(rctx, ids...)
	h.Events.Publish(feed.Event{Type: feed.EventOrderCreated, Order: order})
	h.Logger.Info("order created", "order", order.ID.Hex(), "user", order.User.Hex(), "total", order.TotalPrice)

	sendJSONResponse(ctx, http.StatusCreated, gin.H{"success": true, "order": order})
}

type orderUser struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
}

// orderDetail replaces the user reference with the user's name and email.
type orderDetail struct {
	models.Order
	User orderUser `json:"user"`
}

// GetOrder returns an order to its owner or to an admin. Other callers get a
// 404 so order ids cannot be probed.
func (h *Handler) GetOrder(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	rctx := ctx.Request.Context()
	order, err := h.Store.GetOrder(rctx, id)
	caller := middlewares.CurrentUser(ctx)
	if err == nil && order.User != caller.ID && caller.Role != models.RoleAdmin {
		err = fmt.Errorf("order %w with id: %s", store.ErrNotFound, id.Hex())
	}
	if err != nil {
		h.fail(ctx, err)
		return
	}

	detail := orderDetail{Order: *order, User: orderUser{ID: order.User}}
	if u, err := h.Store.GetUser(rctx, order.User); err == nil {
		detail.User.Name, detail.User.Email = u.Name, u.Email
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "order": detail})
}

func (h *Handler) MyOrders(ctx *gin.Context) {
	orders, err := h.Store.ListOrdersByUser(ctx.Request.Context(), middlewares.CurrentUser(ctx).ID)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "orders": orders})
}

func (h *Handler) AdminListOrders(ctx *gin.Context) {
	orders, err := h.Store.ListOrders(ctx.Request.Context())
	if err != nil {
		h.fail(ctx, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	var total float64
	for _, o := range orders {
		total += o.TotalPrice
	}
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "totalAmount": total, "orders": orders})
}

// UpdateOrderStatus moves an order along the status table. Stock was reserved
// when the order was placed, so shipping does not touch it; cancelling gives
// it back.
func (h *Handler) UpdateOrderStatus(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}
	to, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		sendErrorResponse(ctx, http.StatusBadRequest, err.Error())
		return
	}

	rctx := ctx.Request.Context()
	order, err := h.Store.GetOrder(rctx, id)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	from := order.OrderStatus
	if from == models.StatusDelivered {
		sendErrorResponse(ctx, http.StatusBadRequest, "You have already delivered this order")
		return
	}
	if !models.CanTransition(from, to) {
		sendErrorResponse(ctx, http.StatusBadRequest, fmt.Sprintf("Cannot change order status from %s to %s", from, to))
		return
	}

	if err := h.Store.TransitionOrderStatus(rctx, id, from, to, h.Now()); err != nil {
		h.fail(ctx, err)
		return
	}
	if to == models.StatusCancelled {
		h.restoreStock(rctx, order.OrderItems)
	}

	updated, err := h.Store.GetOrder(rctx, id)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	h.Events.Publish(feed.Event{Type: feed.EventOrderUpdated, Order: updated})
	h.Logger.Info("order status changed", "order", id.Hex(), "from", from, "to", to)
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true, "order": updated})
}

func (h *Handler) DeleteOrder(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	rctx := ctx.Request.Context()
	order, err := h.Store.GetOrder(rctx, id)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	if err := h.Store.DeleteOrder(rctx, id); err != nil {
		h.fail(ctx, err)
		return
	}
	h.Events.Publish(feed.Event{Type: feed.EventOrderDeleted, Order: order})
	sendJSONResponse(ctx, http.StatusOK, gin.H{"success": true})
}
