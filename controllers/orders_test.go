package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"bookstore-backend/auth"
	"bookstore-backend/pricing"
	"bookstore-backend/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMergeLines(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	items, err := mergeLines([]orderItemRequest{
		{Product: a.Hex(), Quantity: 1, Image: "a.jpg"},
		{Product: b.Hex(), Quantity: 2},
		{Product: a.Hex(), Quantity: 3, Image: "ignored.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a, items[0].Product)
	assert.Equal(t, 4, items[0].Quantity)
	assert.Equal(t, "a.jpg", items[0].Image)
	assert.Equal(t, b, items[1].Product)
	assert.Equal(t, 2, items[1].Quantity)

	_, err = mergeLines([]orderItemRequest{{Product: "zzz", Quantity: 1}})
	assert.ErrorIs(t, err, store.ErrInvalidID)
}

func TestCheckClientTotals(t *testing.T) {
	quote := pricing.Quote([]pricing.Line{{Price: 250, Quantity: 2}})
	f := func(v float64) *float64 { return &v }

	assert.NoError(t, checkClientTotals(&newOrderRequest{TotalPrice: f(790)}, quote))
	assert.NoError(t, checkClientTotals(&newOrderRequest{TotalPrice: f(790.001)}, quote), "sub-cent noise")
	assert.NoError(t, checkClientTotals(&newOrderRequest{
		ItemsPrice: f(500), TaxPrice: f(90), ShippingPrice: f(200), TotalPrice: f(790),
	}, quote))

	err := checkClientTotals(&newOrderRequest{TotalPrice: f(789.99)}, quote)
	assert.ErrorContains(t, err, "totalPrice")
	err = checkClientTotals(&newOrderRequest{ShippingPrice: f(0), TotalPrice: f(790)}, quote)
	assert.ErrorContains(t, err, "shippingPrice")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", store.ErrInvalidID), http.StatusBadRequest},
		{fmt.Errorf("product %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrInsufficientStock, http.StatusBadRequest},
		{store.ErrDuplicateEmail, http.StatusBadRequest},
		{store.ErrStatusConflict, http.StatusConflict},
		{fmt.Errorf("%w: pi_1", store.ErrPaymentReused), http.StatusConflict},
		{auth.ErrTokenExpired, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
