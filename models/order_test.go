package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusProcessing, StatusConfirmed, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusProcessing, StatusShipped, false},
		{StatusConfirmed, StatusShipped, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusDelivered, false},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusProcessing, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusProcessing, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestDeliveredHasNoOutgoingTransition(t *testing.T) {
	for _, to := range []OrderStatus{StatusProcessing, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.False(t, CanTransition(StatusDelivered, to), "Delivered -> %s", to)
	}
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("Shipped")
	assert.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseOrderStatus("shipped")
	assert.Error(t, err)
	_, err = ParseOrderStatus("")
	assert.Error(t, err)
}

func TestRecomputeRatings(t *testing.T) {
	p := Product{Reviews: []Review{{Rating: 4}, {Rating: 5}, {Rating: 3}}}
	p.RecomputeRatings()
	assert.Equal(t, 3, p.NumOfReviews)
	assert.InDelta(t, 4.0, p.Ratings, 1e-9)

	p.Reviews = nil
	p.RecomputeRatings()
	assert.Equal(t, 0, p.NumOfReviews)
	assert.Equal(t, 0.0, p.Ratings)
}
